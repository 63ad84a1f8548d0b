/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verify_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/did"
	"github.com/veridex/trust-go/internal/testutil"
	"github.com/veridex/trust-go/proof/defaults"
	"github.com/veridex/trust-go/registry"
	"github.com/veridex/trust-go/status"
	"github.com/veridex/trust-go/trust"
	"github.com/veridex/trust-go/verify"
)

const (
	issuerDID = "did:example:issuer"
	anchorDID = "did:example:root"
)

type fakeStatusBackend struct {
	state status.State
	err   error
	delay time.Duration
}

func (b *fakeStatusBackend) ProviderID() string {
	return "fake-status-backend"
}

func (b *fakeStatusBackend) CheckStatus(_ context.Context, ref *claim.Status) (*status.Record, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	if b.err != nil {
		return nil, b.err
	}

	return &status.Record{
		ListID:    ref.ID,
		Index:     42,
		State:     b.state,
		Purpose:   status.PurposeRevocation,
		FetchedAt: time.Now(),
	}, nil
}

type fixture struct {
	registry *registry.Registry
	resolver *testutil.StaticResolver
	signer   *testutil.Ed25519Signer
	status   *fakeStatusBackend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	signer, err := testutil.NewEd25519Signer()
	require.NoError(t, err)

	static := &testutil.StaticResolver{Docs: map[string]*did.Document{
		issuerDID: testutil.Document(issuerDID, signer.VerificationKey(issuerDID+"#key-1")),
		anchorDID: testutil.Document(anchorDID, did.VerificationKey{ID: anchorDID + "#key-1"}),
	}}

	reg := registry.New()
	require.NoError(t, reg.RegisterDIDMethod("example", static))
	require.NoError(t, defaults.RegisterVerifiers(reg))

	statusBackend := &fakeStatusBackend{state: status.StateActive}
	require.NoError(t, reg.RegisterStatusBackend("FakeEntry", statusBackend))

	require.NoError(t, reg.AddTrustAnchor(trust.Anchor{
		ID:           anchorDID,
		TypePatterns: []string{"*"},
		BaseScore:    1.0,
	}))
	require.NoError(t, reg.AddTrustEdge(trust.Edge{
		From:       anchorDID,
		To:         issuerDID,
		Multiplier: 0.9,
	}))

	return &fixture{registry: reg, resolver: static, signer: signer, status: statusBackend}
}

func (f *fixture) orchestrator(t *testing.T, opts ...verify.Opt) *verify.Orchestrator {
	t.Helper()

	o, err := verify.New(f.registry, opts...)
	require.NoError(t, err)

	return o
}

func (f *fixture) signedClaim(t *testing.T, withStatus bool) *claim.Claim {
	t.Helper()

	doc := `{
	  "issuer": "` + issuerDID + `",
	  "type": ["VerifiableCredential", "UniversityDegreeCredential"],
	  "credentialSubject": {
	    "id": "did:example:holder",
	    "degree": {"type": "BachelorDegree"}
	  }`

	if withStatus {
		doc += `,
	  "credentialStatus": {
	    "id": "https://issuer.example/status/1#42",
	    "type": "FakeEntry"
	  }`
	}

	doc += `}`

	cl, err := claim.Parse([]byte(doc), claim.WithDisabledSchemaValidation())
	require.NoError(t, err)

	require.NoError(t, testutil.SignClaimEd25519(cl, f.signer, issuerDID+"#key-1"))

	return cl
}

func strictPolicy() verify.Policy {
	return verify.Policy{
		RequireTrustPath:  true,
		RequireNotExpired: true,
		RequireNotRevoked: true,
		StatusUnavailable: verify.StatusUnavailableFatal,
	}
}

func TestVerifyValidClaim(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), strictPolicy())
	require.NoError(t, err)

	require.True(t, verdict.Valid)
	require.Empty(t, verdict.Reasons)
	require.Empty(t, verdict.Warnings)
	require.NotEmpty(t, verdict.ID)

	require.Equal(t, verify.CheckPassed, verdict.ProofCheck.State)
	require.Equal(t, verify.CheckPassed, verdict.TrustCheck.State)
	require.Equal(t, verify.CheckPassed, verdict.StatusCheck.State)

	require.NotNil(t, verdict.TrustPath)
	require.InDelta(t, 0.9, verdict.TrustScore, 1e-9)
	require.Equal(t, anchorDID+" -> "+issuerDID, verdict.TrustPath.String())

	require.NotNil(t, verdict.StatusRecord)
	require.Equal(t, status.StateActive, verdict.StatusRecord.State)
}

func TestVerifyInvalidSignatureStillReportsOtherChecks(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	cl := f.signedClaim(t, true)

	sig, err := base64.RawURLEncoding.DecodeString(cl.Proof.ProofValue)
	require.NoError(t, err)

	sig[0] ^= 0xFF
	cl.Proof.ProofValue = base64.RawURLEncoding.EncodeToString(sig)

	verdict, err := o.Verify(context.Background(), cl, strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Len(t, verdict.Reasons, 1)
	require.Equal(t, verify.ReasonInvalidSignature, verdict.Reasons[0].Code)

	// The failing proof does not short-circuit the other sub-checks.
	require.Equal(t, verify.CheckPassed, verdict.TrustCheck.State)
	require.Equal(t, verify.CheckPassed, verdict.StatusCheck.State)
	require.NotNil(t, verdict.TrustPath)
}

func TestVerifyMalformedIssuerContactsNoProvider(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	cl, err := claim.Parse([]byte(`{
	  "issuer": "not-a-valid-id",
	  "type": "VerifiableCredential",
	  "credentialSubject": {}
	}`), claim.WithDisabledSchemaValidation())
	require.NoError(t, err)

	cl.Proof = &claim.Proof{Type: "EdDSA", VerificationMethod: "#k", ProofValue: "c2ln"}

	verdict, err := o.Verify(context.Background(), cl, strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Len(t, verdict.Reasons, 1)
	require.Equal(t, verify.ReasonInvalidFormat, verdict.Reasons[0].Code)
	require.Zero(t, f.resolver.Calls)
}

func TestVerifyStatusUnavailable(t *testing.T) {
	t.Run("warn directive keeps the claim valid", func(t *testing.T) {
		f := newFixture(t)
		f.status.err = errors.New("status service down")

		o := f.orchestrator(t)

		policy := strictPolicy()
		policy.StatusUnavailable = verify.StatusUnavailableWarn

		verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), policy)
		require.NoError(t, err)

		require.True(t, verdict.Valid)
		require.Empty(t, verdict.Reasons)
		require.Len(t, verdict.Warnings, 1)
		require.Equal(t, verify.ReasonStatusUnavailable, verdict.Warnings[0].Code)
	})

	t.Run("fatal directive fails the claim", func(t *testing.T) {
		f := newFixture(t)
		f.status.err = errors.New("status service down")

		o := f.orchestrator(t)

		verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), strictPolicy())
		require.NoError(t, err)

		require.False(t, verdict.Valid)
		require.Len(t, verdict.Reasons, 1)
		require.Equal(t, verify.ReasonStatusUnavailable, verdict.Reasons[0].Code)
	})
}

func TestVerifyRevokedClaim(t *testing.T) {
	f := newFixture(t)
	f.status.state = status.StateRevoked

	o := f.orchestrator(t)

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Len(t, verdict.Reasons, 1)
	require.Equal(t, verify.ReasonRevoked, verdict.Reasons[0].Code)
	require.Equal(t, status.StateRevoked, verdict.StatusRecord.State)
}

func TestVerifySuspendedClaim(t *testing.T) {
	f := newFixture(t)
	f.status.state = status.StateSuspended

	o := f.orchestrator(t)

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Equal(t, verify.ReasonSuspended, verdict.Reasons[0].Code)
}

func TestVerifyNoTrustPath(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	// Anchors only cover University* after this change.
	f.registry.RemoveTrustAnchor(anchorDID)
	require.NoError(t, f.registry.AddTrustAnchor(trust.Anchor{
		ID:           "did:example:other-root",
		TypePatterns: []string{"Employment*"},
		BaseScore:    1.0,
	}))

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, false), strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Len(t, verdict.Reasons, 1)
	require.Equal(t, verify.ReasonNoTrustPath, verdict.Reasons[0].Code)
	require.Equal(t, verify.CheckPassed, verdict.ProofCheck.State)
}

func TestVerifySelfIssuedWithoutTrustRequirement(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	policy := strictPolicy()
	policy.RequireTrustPath = false

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, false), policy)
	require.NoError(t, err)

	require.True(t, verdict.Valid)
	require.Equal(t, verify.CheckSkipped, verdict.TrustCheck.State)
	require.Nil(t, verdict.TrustPath)
	require.Zero(t, verdict.TrustScore)
}

func TestVerifyExpiredClaim(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	cl := f.signedClaim(t, false)

	past := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	cl.Expiration = &past
	require.NoError(t, testutil.SignClaimEd25519(cl, f.signer, issuerDID+"#key-1"))

	verdict, err := o.Verify(context.Background(), cl, strictPolicy())
	require.NoError(t, err)

	require.False(t, verdict.Valid)
	require.Len(t, verdict.Reasons, 1)
	require.Equal(t, verify.ReasonExpired, verdict.Reasons[0].Code)

	t.Run("expiration not required", func(t *testing.T) {
		policy := strictPolicy()
		policy.RequireNotExpired = false

		verdict, err := o.Verify(context.Background(), cl, policy)
		require.NoError(t, err)
		require.True(t, verdict.Valid)
	})
}

func TestVerifyClaimPredicate(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	t.Run("satisfied", func(t *testing.T) {
		policy := strictPolicy()
		policy.ClaimPredicate = `$.degree.type == "BachelorDegree"`

		verdict, err := o.Verify(context.Background(), f.signedClaim(t, false), policy)
		require.NoError(t, err)
		require.True(t, verdict.Valid)
	})

	t.Run("not satisfied", func(t *testing.T) {
		policy := strictPolicy()
		policy.ClaimPredicate = `$.degree.type == "MasterDegree"`

		verdict, err := o.Verify(context.Background(), f.signedClaim(t, false), policy)
		require.NoError(t, err)
		require.False(t, verdict.Valid)
		require.Equal(t, verify.ReasonPredicateNotSatisfied, verdict.Reasons[0].Code)
	})
}

func TestVerifyDeadlineReportsIncompleteChecks(t *testing.T) {
	f := newFixture(t)
	f.status.delay = 5 * time.Second

	o := f.orchestrator(t)

	policy := strictPolicy()
	policy.StatusUnavailable = verify.StatusUnavailableWarn
	policy.Timeout = 100 * time.Millisecond

	verdict, err := o.Verify(context.Background(), f.signedClaim(t, true), policy)
	require.NoError(t, err)

	require.Equal(t, verify.CheckIncomplete, verdict.StatusCheck.State)
	require.Equal(t, verify.ReasonIncomplete, verdict.StatusCheck.Reasons[0].Code)
	require.NotEmpty(t, verdict.Warnings)
}

func TestVerifyCallerMistakes(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	t.Run("nil claim", func(t *testing.T) {
		_, err := o.Verify(context.Background(), nil, strictPolicy())
		require.Error(t, err)
	})

	t.Run("unset status directive", func(t *testing.T) {
		_, err := o.Verify(context.Background(), f.signedClaim(t, false), verify.Policy{})
		require.ErrorIs(t, err, verify.ErrIncompletePolicy)
	})

	t.Run("negative trust depth", func(t *testing.T) {
		policy := strictPolicy()
		policy.MaxTrustDepth = -1

		_, err := o.Verify(context.Background(), f.signedClaim(t, false), policy)
		require.ErrorIs(t, err, verify.ErrIncompletePolicy)
	})
}

func TestVerifyIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	cl := f.signedClaim(t, true)

	first, err := o.Verify(context.Background(), cl, strictPolicy())
	require.NoError(t, err)

	second, err := o.Verify(context.Background(), cl, strictPolicy())
	require.NoError(t, err)

	require.Equal(t, first.Valid, second.Valid)
	require.Equal(t, first.Reasons, second.Reasons)
	require.NotEqual(t, first.ID, second.ID)
}

func TestVerifyPhaseObserver(t *testing.T) {
	f := newFixture(t)

	var phases []verify.Phase

	o := f.orchestrator(t, verify.WithPhaseObserver(func(p verify.Phase) {
		phases = append(phases, p)
	}))

	_, err := o.Verify(context.Background(), f.signedClaim(t, false), strictPolicy())
	require.NoError(t, err)

	require.Equal(t, []verify.Phase{
		verify.PhasePending,
		verify.PhaseResolving,
		verify.PhaseProofChecking,
		verify.PhaseTrustResolving,
		verify.PhaseStatusChecking,
		verify.PhaseAggregated,
	}, phases)
}

func TestNewRequiresCoreCapabilities(t *testing.T) {
	t.Run("no did method", func(t *testing.T) {
		reg := registry.New()
		require.NoError(t, defaults.RegisterVerifiers(reg))

		_, err := verify.New(reg)
		require.ErrorContains(t, err, "did method")
	})

	t.Run("no verifier", func(t *testing.T) {
		reg := registry.New()
		require.NoError(t, reg.RegisterDIDMethod("example", &testutil.StaticResolver{}))

		_, err := verify.New(reg)
		require.ErrorContains(t, err, "verifier")
	})
}

func TestResolveTrustPath(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	path, err := o.ResolveTrustPath(context.Background(), issuerDID, "UniversityDegreeCredential")
	require.NoError(t, err)
	require.Equal(t, anchorDID+" -> "+issuerDID, path.String())

	_, err = o.ResolveTrustPath(context.Background(), "did:example:stranger", "UniversityDegreeCredential")
	require.Error(t, err)
}
