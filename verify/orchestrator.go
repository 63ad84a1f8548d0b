/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verify implements the verification orchestrator: the single entry
// point composing identifier resolution, proof verification, trust path
// resolution and status checking into one aggregated verdict.
//
// After the issuer document is resolved, the proof, trust and status
// sub-checks are independent of each other and run concurrently. The
// orchestrator never fails fast: every sub-check completes (or is cancelled
// by the deadline) and every failure reason is reported.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/did"
	"github.com/veridex/trust-go/proof/checker"
	"github.com/veridex/trust-go/proof/defaults"
	"github.com/veridex/trust-go/registry"
	"github.com/veridex/trust-go/resolver"
	"github.com/veridex/trust-go/status"
	"github.com/veridex/trust-go/trust"
)

// Phase names a stage of the verification pipeline, for observation in tests
// and diagnostics. The three checking phases overlap in time.
type Phase string

const (
	PhasePending        Phase = "pending"
	PhaseResolving      Phase = "resolving"
	PhaseProofChecking  Phase = "proof-checking"
	PhaseTrustResolving Phase = "trust-resolving"
	PhaseStatusChecking Phase = "status-checking"
	PhaseAggregated     Phase = "aggregated"
)

// Orchestrator runs verification passes.
type Orchestrator struct {
	resolver *resolver.Service
	checker  *checker.ProofChecker
	trust    *trust.Resolver
	status   *status.Client

	observer func(Phase)
}

// Opt configures the orchestrator.
type Opt func(*Orchestrator)

// WithResolver replaces the default resolution service.
func WithResolver(svc *resolver.Service) Opt {
	return func(o *Orchestrator) {
		o.resolver = svc
	}
}

// WithProofChecker replaces the default proof checker.
func WithProofChecker(c *checker.ProofChecker) Opt {
	return func(o *Orchestrator) {
		o.checker = c
	}
}

// WithTrustResolver replaces the default trust path resolver.
func WithTrustResolver(r *trust.Resolver) Opt {
	return func(o *Orchestrator) {
		o.trust = r
	}
}

// WithStatusClient replaces the default status client.
func WithStatusClient(c *status.Client) Opt {
	return func(o *Orchestrator) {
		o.status = c
	}
}

// WithPhaseObserver registers a callback invoked on every phase transition.
func WithPhaseObserver(observer func(Phase)) Opt {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New creates an orchestrator on top of the given registry. Capabilities that
// are structurally required must be registered before this call: a registry
// without identifier resolvers or signature verifiers is a configuration
// error surfaced here, at startup, never mid-verification.
func New(reg *registry.Registry, opts ...Opt) (*Orchestrator, error) {
	o := &Orchestrator{}

	for _, opt := range opts {
		opt(o)
	}

	if o.resolver == nil {
		o.resolver = resolver.New(reg)
	}

	if o.checker == nil {
		o.checker = defaults.NewChecker(reg)
	}

	if o.trust == nil {
		o.trust = trust.New(reg, reg, trust.WithDocumentSource(o.resolver))
	}

	if o.status == nil {
		o.status = status.New(reg)
	}

	if len(reg.FindByCapability("did-method/")) == 0 {
		return nil, errors.New("no did method resolver registered")
	}

	if len(reg.FindByCapability("key-alg/")) == 0 {
		return nil, errors.New("no signature verifier registered")
	}

	return o, nil
}

// ResolveTrustPath exposes the trust path resolver read-only, for diagnostics
// outside a verification pass.
func (o *Orchestrator) ResolveTrustPath(ctx context.Context, issuer, credentialType string) (*trust.Path, error) {
	return o.trust.FindPath(ctx, issuer, credentialType, 0)
}

const (
	slotProof = iota
	slotTrust
	slotStatus
	slotCount
)

type subResult struct {
	slot   int
	check  SubCheck
	path   *trust.Path
	record *status.Record
}

// Verify runs a full verification pass over the claim under the given
// policy. The returned error covers only caller mistakes (nil claim,
// incomplete policy); every expected verification failure is reported inside
// the verdict.
func (o *Orchestrator) Verify(ctx context.Context, cl *claim.Claim, policy Policy) (*Verdict, error) { //nolint:funlen
	if cl == nil {
		return nil, errors.New("claim is nil")
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if policy.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	verdict := &Verdict{ID: uuid.NewString()}

	o.phase(PhasePending)
	o.phase(PhaseResolving)

	doc, resolveErr := o.resolver.Resolve(ctx, cl.Issuer)

	// A malformed identifier fails the whole pass before any sub-check: no
	// provider was contacted and none will be.
	if errors.Is(resolveErr, resolver.ErrInvalidFormat) {
		verdict.Reasons = append(verdict.Reasons, Reason{Code: ReasonInvalidFormat, Detail: resolveErr.Error()})
		verdict.ProofCheck = SubCheck{State: CheckFailed, Reasons: verdict.Reasons}

		o.phase(PhaseAggregated)

		return verdict, nil
	}

	results := make(chan subResult, slotCount)

	o.phase(PhaseProofChecking)

	go func() {
		results <- o.checkProof(ctx, cl, doc, resolveErr)
	}()

	o.phase(PhaseTrustResolving)

	go func() {
		results <- o.checkTrust(ctx, cl, policy)
	}()

	o.phase(PhaseStatusChecking)

	go func() {
		results <- o.checkStatus(ctx, cl, policy)
	}()

	collected := o.collect(ctx, results, verdict)

	o.aggregate(cl, policy, verdict, collected)

	o.phase(PhaseAggregated)

	return verdict, nil
}

// collect joins the three sub-checks. When the deadline fires first, the
// missing slots are reported as incomplete rather than dropped.
func (o *Orchestrator) collect(ctx context.Context, results <-chan subResult, verdict *Verdict) [slotCount]SubCheck {
	var checks [slotCount]SubCheck

	remaining := map[int]struct{}{slotProof: {}, slotTrust: {}, slotStatus: {}}

	for len(remaining) > 0 {
		select {
		case r := <-results:
			checks[r.slot] = r.check
			delete(remaining, r.slot)

			if r.path != nil {
				verdict.TrustPath = r.path
				verdict.TrustScore = r.path.Score()
			}

			if r.record != nil {
				verdict.StatusRecord = r.record
			}
		case <-ctx.Done():
			for slot := range remaining {
				checks[slot] = SubCheck{
					State:   CheckIncomplete,
					Reasons: []Reason{{Code: ReasonIncomplete, Detail: ctx.Err().Error()}},
				}
			}

			return checks
		}
	}

	return checks
}

func (o *Orchestrator) checkProof(ctx context.Context, cl *claim.Claim, doc *did.Document, resolveErr error) subResult {
	if resolveErr != nil {
		return subResult{slot: slotProof, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: ReasonResolution, Detail: resolveErr.Error()}},
		}}
	}

	if err := o.checker.CheckProof(ctx, cl, doc); err != nil {
		return subResult{slot: slotProof, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: proofReasonCode(err), Detail: err.Error()}},
		}}
	}

	return subResult{slot: slotProof, check: SubCheck{State: CheckPassed}}
}

func (o *Orchestrator) checkTrust(ctx context.Context, cl *claim.Claim, policy Policy) subResult {
	if !policy.RequireTrustPath {
		return subResult{slot: slotTrust, check: SubCheck{State: CheckSkipped}}
	}

	path, err := o.trust.FindPath(ctx, cl.Issuer, cl.PrimaryType(), policy.MaxTrustDepth)
	if err != nil {
		code := ReasonNoTrustPath
		if errors.Is(err, trust.ErrIssuerUnreachable) {
			code = ReasonIssuerUnreachable
		}

		return subResult{slot: slotTrust, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: code, Detail: err.Error()}},
		}}
	}

	return subResult{slot: slotTrust, check: SubCheck{State: CheckPassed}, path: path}
}

func (o *Orchestrator) checkStatus(ctx context.Context, cl *claim.Claim, policy Policy) subResult {
	if !policy.RequireNotRevoked || cl.Status == nil {
		return subResult{slot: slotStatus, check: SubCheck{State: CheckSkipped}}
	}

	record, err := o.status.Check(ctx, cl.Status)

	switch {
	case err != nil || record.State == status.StateUnavailable:
		detail := "status could not be determined"
		if err != nil {
			detail = err.Error()
		}

		return subResult{slot: slotStatus, record: record, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: ReasonStatusUnavailable, Detail: detail}},
		}}
	case record.State == status.StateRevoked:
		return subResult{slot: slotStatus, record: record, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: ReasonRevoked, Detail: "claim is revoked in " + record.ListID}},
		}}
	case record.State == status.StateSuspended:
		return subResult{slot: slotStatus, record: record, check: SubCheck{
			State:   CheckFailed,
			Reasons: []Reason{{Code: ReasonSuspended, Detail: "claim is suspended in " + record.ListID}},
		}}
	default:
		return subResult{slot: slotStatus, record: record, check: SubCheck{State: CheckPassed}}
	}
}

// aggregate folds the sub-check outcomes and the I/O-free checks
// (expiration, claim predicate) into the final verdict.
func (o *Orchestrator) aggregate(cl *claim.Claim, policy Policy, verdict *Verdict, checks [slotCount]SubCheck) {
	verdict.ProofCheck = checks[slotProof]
	verdict.TrustCheck = checks[slotTrust]
	verdict.StatusCheck = checks[slotStatus]

	// Proof validity is non-negotiable.
	if checks[slotProof].State != CheckPassed {
		verdict.Reasons = append(verdict.Reasons, checks[slotProof].Reasons...)
	}

	if policy.RequireTrustPath && checks[slotTrust].State != CheckPassed {
		verdict.Reasons = append(verdict.Reasons, checks[slotTrust].Reasons...)
	}

	switch checks[slotStatus].State {
	case CheckPassed, CheckSkipped:
	default:
		unavailableOnly := true

		for _, r := range checks[slotStatus].Reasons {
			if r.Code != ReasonStatusUnavailable && r.Code != ReasonIncomplete {
				unavailableOnly = false
			}
		}

		if unavailableOnly && policy.StatusUnavailable == StatusUnavailableWarn {
			verdict.Warnings = append(verdict.Warnings, checks[slotStatus].Reasons...)
		} else {
			verdict.Reasons = append(verdict.Reasons, checks[slotStatus].Reasons...)
		}
	}

	if policy.RequireNotExpired && cl.Expired(time.Now()) {
		verdict.Reasons = append(verdict.Reasons, Reason{
			Code:   ReasonExpired,
			Detail: "claim expired at " + cl.Expiration.UTC().Format(time.RFC3339),
		})
	}

	if policy.ClaimPredicate != "" {
		if reason := evalPredicate(policy.ClaimPredicate, cl.Subject); reason != nil {
			verdict.Reasons = append(verdict.Reasons, *reason)
		}
	}

	verdict.Valid = len(verdict.Reasons) == 0
}

// evalPredicate evaluates a jsonpath predicate against the credential
// subject. The expression must produce a boolean true.
func evalPredicate(expression string, subject map[string]interface{}) *Reason {
	value, err := gval.Full(jsonpath.Language()).Evaluate(expression, map[string]interface{}(subject))
	if err != nil {
		return &Reason{Code: ReasonPredicateNotSatisfied, Detail: fmt.Sprintf("evaluate %q: %s", expression, err)}
	}

	if satisfied, ok := value.(bool); !ok || !satisfied {
		return &Reason{Code: ReasonPredicateNotSatisfied, Detail: fmt.Sprintf("%q is not satisfied", expression)}
	}

	return nil
}

func proofReasonCode(err error) ReasonCode {
	switch {
	case errors.Is(err, checker.ErrKeyNotFound):
		return ReasonKeyNotFound
	case errors.Is(err, checker.ErrUnsupportedAlgorithm):
		return ReasonUnsupportedAlgorithm
	case errors.Is(err, checker.ErrAlgorithmMismatch):
		return ReasonAlgorithmMismatch
	default:
		return ReasonInvalidSignature
	}
}

func (o *Orchestrator) phase(p Phase) {
	if o.observer != nil {
		o.observer(p)
	}
}
