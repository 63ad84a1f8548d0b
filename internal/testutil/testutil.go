/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testutil provides local signers and static providers for tests.
// Signing exists only here: the library itself never touches private keys.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/did"
)

// Ed25519Signer signs test payloads with a freshly generated Ed25519 key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519Signer generates a signer.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &Ed25519Signer{priv: priv, pub: pub}, nil
}

// Sign signs msg.
func (s *Ed25519Signer) Sign(msg []byte) []byte {
	return ed25519.Sign(s.priv, msg)
}

// VerificationKey returns the public counterpart as a document key.
func (s *Ed25519Signer) VerificationKey(id string) did.VerificationKey {
	return did.VerificationKey{
		ID:    id,
		Type:  "Ed25519VerificationKey2020",
		Value: append([]byte(nil), s.pub...),
	}
}

// ECDSASigner signs test payloads with a freshly generated P-256 key,
// producing P1363 signatures.
type ECDSASigner struct {
	priv *ecdsa.PrivateKey
}

// NewECDSASigner generates a signer.
func NewECDSASigner() (*ECDSASigner, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	return &ECDSASigner{priv: priv}, nil
}

// Sign signs sha256(msg) and encodes r||s with fixed 32-byte halves.
func (s *ECDSASigner) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)

	r, sv, err := ecdsa.Sign(rand.Reader, s.priv, hash[:])
	if err != nil {
		return nil, err
	}

	const keySize = 32

	signature := make([]byte, 2*keySize)
	r.FillBytes(signature[:keySize])
	sv.FillBytes(signature[keySize:])

	return signature, nil
}

// VerificationKey returns the public counterpart as a document key.
func (s *ECDSASigner) VerificationKey(id string) did.VerificationKey {
	pub := s.priv.PublicKey

	return did.VerificationKey{
		ID:    id,
		Type:  "P256Key2021",
		Value: elliptic.Marshal(pub.Curve, pub.X, pub.Y),
	}
}

// SignClaimEd25519 attaches an Ed25519Signature2020 proof over the claim's
// canonical form, mirroring what an issuer would produce.
func SignClaimEd25519(cl *claim.Claim, signer *Ed25519Signer, verificationMethod string) error {
	payload, err := cl.SignedPayload()
	if err != nil {
		return fmt.Errorf("canonicalize claim: %w", err)
	}

	digest := sha256.Sum256(payload)

	cl.Proof = &claim.Proof{
		Type:               "Ed25519Signature2020",
		VerificationMethod: verificationMethod,
		ProofValue:         base64.RawURLEncoding.EncodeToString(signer.Sign(digest[:])),
	}

	return nil
}

// StaticResolver is a DID resolver provider answering from a fixed document
// set and counting its calls.
type StaticResolver struct {
	ID    string
	Docs  map[string]*did.Document
	Err   error
	Calls int
}

// ProviderID identifies this resolver in a provider registry.
func (r *StaticResolver) ProviderID() string {
	if r.ID != "" {
		return r.ID
	}

	return "static-resolver"
}

// ResolveDID answers from the static document set.
func (r *StaticResolver) ResolveDID(_ context.Context, didStr string) (*did.Document, error) {
	r.Calls++

	if r.Err != nil {
		return nil, r.Err
	}

	doc, ok := r.Docs[didStr]
	if !ok {
		return nil, fmt.Errorf("static resolver: %s not present", didStr)
	}

	return doc, nil
}

// Document builds a minimal valid document around the given keys.
func Document(id string, keys ...did.VerificationKey) *did.Document {
	return &did.Document{ID: id, VerificationKeys: keys}
}
