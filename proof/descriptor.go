/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proof describes the supported proof algorithms: how a proof type
// digests the signed payload and which verification methods it accepts.
package proof

import (
	"github.com/veridex/trust-go/crypto-ext/pubkey"
)

// SupportedVerificationMethod describes a verification method accepted by a
// proof descriptor.
type SupportedVerificationMethod struct {
	// VerificationMethodType from the resolved document, e.g. Ed25519VerificationKey2020.
	VerificationMethodType string
	KeyType                pubkey.KeyType
	JWKKeyType             string
	JWKCurve               string
	RequireJWK             bool
}

// Descriptor describes a proof algorithm.
type Descriptor interface {
	// ProofType returns the algorithm id as it appears in a proof's type
	// field, or in the alg header of an enveloped claim.
	ProofType() string

	// Digest returns the content digest of the signed payload that the
	// signature is computed over.
	Digest(payload []byte) []byte

	SupportedVerificationMethods() []SupportedVerificationMethod
}
