/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package proof

import (
	"crypto/sha256"

	"github.com/veridex/trust-go/crypto-ext/pubkey"
)

const (
	// JSONWebKey2020Type is the JWK-carrying verification method type.
	JSONWebKey2020Type = "JsonWebKey2020"

	ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	ed25519VerificationKey2020 = "Ed25519VerificationKey2020"
	ecdsaSecp256k1Key2019      = "EcdsaSecp256k1VerificationKey2019"
	p256Key2021                = "P256Key2021"
	p384Key2021                = "P384Key2021"
	p521Key2021                = "P521Key2021"
	rsaVerificationKey2018     = "RsaVerificationKey2018"
)

type descriptor struct {
	proofType    string
	digestSHA256 bool
	methods      []SupportedVerificationMethod
}

// ProofType return proof type.
func (d *descriptor) ProofType() string {
	return d.proofType
}

// Digest returns document digest.
func (d *descriptor) Digest(payload []byte) []byte {
	if !d.digestSHA256 {
		// Enveloped proofs sign the payload directly; the verifier applies
		// the algorithm's own hash.
		return payload
	}

	digest := sha256.Sum256(payload)

	return digest[:]
}

// SupportedVerificationMethods returns the verification methods this proof
// type accepts.
func (d *descriptor) SupportedVerificationMethods() []SupportedVerificationMethod {
	return d.methods
}

// NewEd25519Signature2020 describes the Ed25519Signature2020 detached proof.
func NewEd25519Signature2020() Descriptor {
	return &descriptor{
		proofType:    "Ed25519Signature2020",
		digestSHA256: true,
		methods:      ed25519Methods(),
	}
}

// NewEcdsaSecp256k1Signature2019 describes the EcdsaSecp256k1Signature2019
// detached proof.
func NewEcdsaSecp256k1Signature2019() Descriptor {
	return &descriptor{
		proofType:    "EcdsaSecp256k1Signature2019",
		digestSHA256: true,
		methods:      secp256k1Methods(),
	}
}

// NewEdDSA describes the EdDSA algorithm of enveloped claims.
func NewEdDSA() Descriptor {
	return &descriptor{proofType: "EdDSA", methods: ed25519Methods()}
}

// NewES256 describes the ES256 algorithm of enveloped claims.
func NewES256() Descriptor {
	return &descriptor{
		proofType: "ES256",
		methods: []SupportedVerificationMethod{
			{VerificationMethodType: p256Key2021, KeyType: pubkey.ECDSAP256},
			{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.ECDSAP256, JWKKeyType: "EC", JWKCurve: "P-256", RequireJWK: true},
		},
	}
}

// NewES256K describes the ES256K algorithm of enveloped claims.
func NewES256K() Descriptor {
	return &descriptor{proofType: "ES256K", methods: secp256k1Methods()}
}

// NewES384 describes the ES384 algorithm of enveloped claims.
func NewES384() Descriptor {
	return &descriptor{
		proofType: "ES384",
		methods: []SupportedVerificationMethod{
			{VerificationMethodType: p384Key2021, KeyType: pubkey.ECDSAP384},
			{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.ECDSAP384, JWKKeyType: "EC", JWKCurve: "P-384", RequireJWK: true},
		},
	}
}

// NewES521 describes the ES521 algorithm of enveloped claims.
func NewES521() Descriptor {
	return &descriptor{
		proofType: "ES521",
		methods: []SupportedVerificationMethod{
			{VerificationMethodType: p521Key2021, KeyType: pubkey.ECDSAP521},
			{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.ECDSAP521, JWKKeyType: "EC", JWKCurve: "P-521", RequireJWK: true},
		},
	}
}

// NewRS256 describes the RS256 algorithm of enveloped claims.
func NewRS256() Descriptor {
	return &descriptor{
		proofType: "RS256",
		methods: []SupportedVerificationMethod{
			{VerificationMethodType: rsaVerificationKey2018, KeyType: pubkey.RSARS256},
			{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.RSARS256, JWKKeyType: "RSA", RequireJWK: true},
		},
	}
}

// NewPS256 describes the PS256 algorithm of enveloped claims.
func NewPS256() Descriptor {
	return &descriptor{
		proofType: "PS256",
		methods: []SupportedVerificationMethod{
			{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.RSAPS256, JWKKeyType: "RSA", RequireJWK: true},
		},
	}
}

func ed25519Methods() []SupportedVerificationMethod {
	return []SupportedVerificationMethod{
		{VerificationMethodType: ed25519VerificationKey2018, KeyType: pubkey.ED25519},
		{VerificationMethodType: ed25519VerificationKey2020, KeyType: pubkey.ED25519},
		{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.ED25519, JWKKeyType: "OKP", JWKCurve: "Ed25519", RequireJWK: true},
	}
}

func secp256k1Methods() []SupportedVerificationMethod {
	return []SupportedVerificationMethod{
		{VerificationMethodType: ecdsaSecp256k1Key2019, KeyType: pubkey.ECDSASecp256k1},
		{VerificationMethodType: JSONWebKey2020Type, KeyType: pubkey.ECDSASecp256k1, JWKKeyType: "EC", JWKCurve: "secp256k1", RequireJWK: true},
	}
}
