/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status implements the credential status checker. It decodes
// externally fetched status lists through pluggable format backends and
// reports the revocation state of a single claim.
//
// The checker never conflates "the credential is revoked" with "the status
// could not be checked": unavailability is its own state, and policy on it
// belongs to the caller.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/registry"
)

// State is the revocation state of a claim.
type State int

const (
	// StateUnavailable means the status could not be determined.
	StateUnavailable State = iota
	// StateActive means the claim is not revoked or suspended.
	StateActive
	// StateRevoked means the claim is permanently revoked.
	StateRevoked
	// StateSuspended means the claim is temporarily suspended.
	StateSuspended
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRevoked:
		return "revoked"
	case StateSuspended:
		return "suspended"
	default:
		return "unavailable"
	}
}

const (
	// PurposeRevocation is the purpose of a status list entry for revocation.
	PurposeRevocation = "revocation"
	// PurposeSuspension is the purpose of a status list entry for suspension.
	PurposeSuspension = "suspension"
)

// ErrFormatNotSupported means no backend is registered for the status
// reference type.
var ErrFormatNotSupported = errors.New("status format not supported")

// Record is the decoded status of a claim at fetch time.
type Record struct {
	// ListID identifies the status list the state was read from.
	ListID string
	// Index is the claim's position in the list.
	Index int
	// State is the decoded state.
	State State
	// Purpose the list entry was declared for.
	Purpose string
	// FetchedAt is when the underlying list was fetched.
	FetchedAt time.Time
}

type statusChecker interface {
	CheckStatus(ctx context.Context, ref *claim.Status) (*Record, error)
}

type providerSource interface {
	Resolve(capability registry.Capability) ([]registry.Provider, error)
}

// Client checks claim status references against registered format backends.
type Client struct {
	providers providerSource
}

// New creates a status client on top of the given provider source.
func New(providers providerSource) *Client {
	return &Client{providers: providers}
}

// Check determines the status of the given reference. When the status cannot
// be determined the returned record carries StateUnavailable and the error
// explains why; a revoked or suspended claim is reported through the record
// state with a nil error.
func (c *Client) Check(ctx context.Context, ref *claim.Status) (*Record, error) {
	if ref == nil {
		return nil, errors.New("status reference is nil")
	}

	unavailable := &Record{ListID: ref.ID, State: StateUnavailable, FetchedAt: time.Now()}

	providers, err := c.providers.Resolve(registry.StatusFormat(ref.Type))
	if err != nil {
		if errors.Is(err, registry.ErrCapabilityNotFound) {
			return unavailable, fmt.Errorf("%w: %s", ErrFormatNotSupported, ref.Type)
		}

		return unavailable, err
	}

	var attemptErrs []error

	for _, p := range providers {
		backend, ok := p.(statusChecker)
		if !ok {
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: does not implement status checking", p.ProviderID()))

			continue
		}

		record, err := backend.CheckStatus(ctx, ref)
		if err == nil {
			return record, nil
		}

		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", p.ProviderID(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return unavailable, fmt.Errorf("%w: check status of %s: %w",
		registry.ErrAllProvidersFailed, ref.ID, errors.Join(attemptErrs...))
}
