/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verify

import (
	"github.com/veridex/trust-go/status"
	"github.com/veridex/trust-go/trust"
)

// ReasonCode is a machine-readable verification failure reason.
type ReasonCode string

const (
	// ReasonInvalidFormat means the claim or issuer identifier is statically
	// malformed. Raised before any I/O.
	ReasonInvalidFormat ReasonCode = "invalid-format"
	// ReasonResolution means the issuer document could not be resolved.
	ReasonResolution ReasonCode = "resolution-failed"
	// ReasonInvalidSignature means the proof signature check failed.
	ReasonInvalidSignature ReasonCode = "invalid-signature"
	// ReasonKeyNotFound means the proof references a key the issuer document
	// does not contain.
	ReasonKeyNotFound ReasonCode = "key-not-found"
	// ReasonUnsupportedAlgorithm means no verifier serves the proof algorithm.
	ReasonUnsupportedAlgorithm ReasonCode = "unsupported-algorithm"
	// ReasonAlgorithmMismatch means the referenced key does not match the
	// proof's declared algorithm.
	ReasonAlgorithmMismatch ReasonCode = "algorithm-mismatch"
	// ReasonNoTrustPath means no delegation chain connects a trust anchor to
	// the issuer.
	ReasonNoTrustPath ReasonCode = "no-trust-path"
	// ReasonIssuerUnreachable means trust graph expansion failed.
	ReasonIssuerUnreachable ReasonCode = "issuer-unreachable"
	// ReasonExpired means the claim expiration is in the past.
	ReasonExpired ReasonCode = "expired"
	// ReasonRevoked means the status list marks the claim revoked.
	ReasonRevoked ReasonCode = "revoked"
	// ReasonSuspended means the status list marks the claim suspended.
	ReasonSuspended ReasonCode = "suspended"
	// ReasonStatusUnavailable means the status could not be checked.
	ReasonStatusUnavailable ReasonCode = "status-unavailable"
	// ReasonPredicateNotSatisfied means the policy claim predicate did not
	// evaluate to true on the credential subject.
	ReasonPredicateNotSatisfied ReasonCode = "predicate-not-satisfied"
	// ReasonIncomplete means the sub-check was cancelled by the overall
	// deadline before producing a result.
	ReasonIncomplete ReasonCode = "incomplete"
)

// Reason pairs a failure code with human-readable detail.
type Reason struct {
	Code   ReasonCode
	Detail string
}

func (r Reason) String() string {
	if r.Detail == "" {
		return string(r.Code)
	}

	return string(r.Code) + ": " + r.Detail
}

// CheckState is the outcome of a single sub-check.
type CheckState int

const (
	// CheckSkipped means policy did not require the sub-check.
	CheckSkipped CheckState = iota
	// CheckPassed means the sub-check completed successfully.
	CheckPassed
	// CheckFailed means the sub-check completed with failures.
	CheckFailed
	// CheckIncomplete means the overall deadline cancelled the sub-check.
	// Its slot is reported, never silently dropped.
	CheckIncomplete
)

// SubCheck is the partial result of one concurrent sub-check.
type SubCheck struct {
	State   CheckState
	Reasons []Reason
}

// Verdict is the aggregated verification result. It is never a bare boolean:
// an invalid verdict lists every failure reason encountered across all
// sub-checks, so callers can present a complete diagnostic.
type Verdict struct {
	// ID uniquely identifies this verification pass.
	ID string

	Valid bool

	// TrustScore is the composite score of the trust path, zero when no path
	// was required.
	TrustScore float64
	TrustPath  *trust.Path

	// Reasons lists every fatal failure; empty exactly when Valid.
	Reasons []Reason
	// Warnings lists non-fatal findings, e.g. status unavailability under a
	// warn policy.
	Warnings []Reason

	// Partial results of the concurrent sub-checks.
	ProofCheck  SubCheck
	TrustCheck  SubCheck
	StatusCheck SubCheck

	// StatusRecord is the decoded status, when the status check ran.
	StatusRecord *status.Record
}
