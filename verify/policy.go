/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verify

import (
	"errors"
	"fmt"
	"time"
)

// StatusDirective tells the orchestrator how to treat an unavailable status
// check. There is no implicit default: policies must set it explicitly.
type StatusDirective int

const (
	// StatusDirectiveUnset is the zero value and fails policy validation.
	StatusDirectiveUnset StatusDirective = iota
	// StatusUnavailableFatal makes an unavailable status a verification failure.
	StatusUnavailableFatal
	// StatusUnavailableWarn downgrades an unavailable status to a warning.
	StatusUnavailableWarn
)

// ErrIncompletePolicy means a required policy field is unset.
var ErrIncompletePolicy = errors.New("incomplete verification policy")

// Policy selects which sub-checks are required for a verification pass.
// Proof validity is always required and has no toggle.
type Policy struct {
	// RequireTrustPath demands a delegation path from a configured trust
	// anchor to the issuer. Self-issued claims are verified without it.
	RequireTrustPath bool

	// RequireNotExpired rejects claims whose expiration is in the past.
	RequireNotExpired bool

	// RequireNotRevoked demands a status check when the claim carries a
	// status reference.
	RequireNotRevoked bool

	// StatusUnavailable decides whether an unavailable status check is fatal
	// or a warning. Must be set explicitly.
	StatusUnavailable StatusDirective

	// MaxTrustDepth caps delegation path length; zero applies the trust
	// resolver default.
	MaxTrustDepth int

	// ClaimPredicate is an optional jsonpath expression evaluated against
	// the credential subject, e.g. `$.degree.type == "BachelorDegree"`.
	// It must evaluate to true for the claim to be valid.
	ClaimPredicate string

	// Timeout bounds the whole verification pass. Sub-checks still running
	// when it elapses are reported as incomplete. Zero means the caller's
	// context deadline alone applies.
	Timeout time.Duration
}

// Validate checks that the policy is complete.
func (p Policy) Validate() error {
	switch p.StatusUnavailable {
	case StatusUnavailableFatal, StatusUnavailableWarn:
	default:
		return fmt.Errorf("%w: StatusUnavailable directive must be set", ErrIncompletePolicy)
	}

	if p.MaxTrustDepth < 0 {
		return fmt.Errorf("%w: MaxTrustDepth must not be negative", ErrIncompletePolicy)
	}

	return nil
}
