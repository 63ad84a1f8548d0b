/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package checker implements proof verification: locating the verification
// key in a resolved document, digesting the canonical payload and delegating
// the signature check to a key-algorithm provider from the registry.
package checker

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/crypto-ext/pubkey"
	"github.com/veridex/trust-go/did"
	"github.com/veridex/trust-go/proof"
	"github.com/veridex/trust-go/registry"
)

var (
	// ErrKeyNotFound means the proof references a verification key the
	// resolved document does not contain.
	ErrKeyNotFound = errors.New("verification key not found")

	// ErrUnsupportedAlgorithm means no descriptor or verifier is available
	// for the proof's declared algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported proof algorithm")

	// ErrAlgorithmMismatch means the referenced key's algorithm does not
	// match the proof's declared algorithm. Detected before any signature
	// check so an impossible verification round trip is never attempted.
	ErrAlgorithmMismatch = errors.New("key algorithm does not match proof algorithm")

	// ErrInvalidSignature means the signature check failed. Deterministic,
	// never retried.
	ErrInvalidSignature = errors.New("invalid signature")
)

type signatureVerifier interface {
	// SupportedKeyType checks if verifier supports given key.
	SupportedKeyType(keyType pubkey.KeyType) bool
	// Verify verifies the signature. The key-management backend may be
	// remote, so the call is context-bound.
	Verify(ctx context.Context, sig, msg []byte, pub *pubkey.PublicKey) error
}

type providerSource interface {
	Resolve(capability registry.Capability) ([]registry.Provider, error)
}

// ProofChecker verifies detached claim proofs.
type ProofChecker struct {
	providers   providerSource
	descriptors map[string]proof.Descriptor
}

// Opt represent checker creation options.
type Opt func(c *ProofChecker)

// WithProofTypes option to set the supported proof descriptors.
func WithProofTypes(proofDescs ...proof.Descriptor) Opt {
	return func(c *ProofChecker) {
		for _, proofDesc := range proofDescs {
			c.descriptors[proofDesc.ProofType()] = proofDesc
		}
	}
}

// New creates new proof checker selecting signature verifiers from the given
// provider source.
func New(providers providerSource, opts ...Opt) *ProofChecker {
	c := &ProofChecker{
		providers:   providers,
		descriptors: map[string]proof.Descriptor{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckProof verifies the claim's proof against the resolved issuer document.
// All returned failures wrap one of the package sentinel errors.
func (c *ProofChecker) CheckProof(ctx context.Context, cl *claim.Claim, issuerDoc *did.Document) error {
	if cl.Proof == nil {
		return fmt.Errorf("%w: claim has no proof", ErrInvalidSignature)
	}

	desc, ok := c.descriptors[cl.Proof.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cl.Proof.Type)
	}

	vk, err := issuerDoc.VerificationKeyByID(cl.Proof.VerificationMethod)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, err)
	}

	key, err := matchKey(desc, vk)
	if err != nil {
		return err
	}

	payload, err := cl.SignedPayload()
	if err != nil {
		return fmt.Errorf("compute signed payload: %w", err)
	}

	signatures, err := decodeProofValue(cl)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	verifier, err := c.selectVerifier(desc, key.Type)
	if err != nil {
		return err
	}

	digest := desc.Digest(payload)

	var verifyErr error

	for _, signature := range signatures {
		if verifyErr = verifier.Verify(ctx, signature, digest, key); verifyErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidSignature, verifyErr)
}

func (c *ProofChecker) selectVerifier(desc proof.Descriptor, keyType pubkey.KeyType) (signatureVerifier, error) {
	providers, err := c.providers.Resolve(registry.KeyAlgorithm(desc.ProofType()))
	if err != nil {
		if errors.Is(err, registry.ErrCapabilityNotFound) {
			return nil, fmt.Errorf("%w: no verifier registered for %s", ErrUnsupportedAlgorithm, desc.ProofType())
		}

		return nil, err
	}

	// A signature check is deterministic, so the first capable verifier in
	// the chain gives the final answer; there is no fallback on failure.
	for _, p := range providers {
		verifier, ok := p.(signatureVerifier)
		if ok && verifier.SupportedKeyType(keyType) {
			return verifier, nil
		}
	}

	return nil, fmt.Errorf("%w: no verifier supports key type %s", ErrUnsupportedAlgorithm, keyType)
}

func matchKey(desc proof.Descriptor, vk *did.VerificationKey) (*pubkey.PublicKey, error) {
	for _, method := range desc.SupportedVerificationMethods() {
		if vk.Type != method.VerificationMethodType {
			continue
		}

		if method.RequireJWK {
			if vk.JWK == nil || !jwkMatches(method, vk.JWK) {
				continue
			}

			return &pubkey.PublicKey{Type: method.KeyType, JWK: vk.JWK}, nil
		}

		material, err := vk.Material()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, err)
		}

		return &pubkey.PublicKey{Type: method.KeyType, Bytes: material, JWK: vk.JWK}, nil
	}

	return nil, fmt.Errorf("%w: key %s of type %s, proof %s", ErrAlgorithmMismatch, vk.ID, vk.Type, desc.ProofType())
}

func jwkMatches(method proof.SupportedVerificationMethod, jwk *jose.JSONWebKey) bool {
	switch key := jwk.Public().Key.(type) {
	case ed25519.PublicKey:
		return method.JWKKeyType == "OKP" && method.JWKCurve == "Ed25519"
	case *ecdsa.PublicKey:
		return method.JWKKeyType == "EC" && method.JWKCurve == key.Curve.Params().Name
	case *rsa.PublicKey:
		return method.JWKKeyType == "RSA"
	default:
		return false
	}
}

// decodeProofValue returns the candidate signature decodings of the proof
// value. Enveloped claims always carry base64url signatures. Detached proof
// values are conventionally multibase base58btc, marked by the 'z' prefix,
// but a raw base64url signature can start with 'z' too; both decodings are
// returned and the signature check decides.
func decodeProofValue(cl *claim.Claim) ([][]byte, error) {
	proofValue := cl.Proof.ProofValue
	if proofValue == "" {
		return nil, errors.New("proof value is empty")
	}

	if cl.Enveloped() {
		decoded, err := base64.RawURLEncoding.DecodeString(proofValue)
		if err != nil {
			return nil, fmt.Errorf("decode proof value: %w", err)
		}

		return [][]byte{decoded}, nil
	}

	var candidates [][]byte

	if proofValue[0] == 'z' {
		if _, decoded, err := multibase.Decode(proofValue); err == nil {
			candidates = append(candidates, decoded)
		}
	}

	if decoded, err := base64.RawURLEncoding.DecodeString(proofValue); err == nil {
		candidates = append(candidates, decoded)
	}

	if len(candidates) == 0 {
		return nil, errors.New("proof value is neither multibase nor base64url")
	}

	return candidates, nil
}
