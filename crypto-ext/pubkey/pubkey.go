/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pubkey defines the public key model handed to signature verifiers.
package pubkey

import (
	"github.com/go-jose/go-jose/v3"
)

// KeyType identifies the cryptographic type of a public key.
type KeyType string

const (
	// ED25519 is an Ed25519 public key.
	ED25519 KeyType = "Ed25519"
	// ECDSAP256 is an ECDSA public key on the NIST P-256 curve.
	ECDSAP256 KeyType = "ECDSA-P256"
	// ECDSAP384 is an ECDSA public key on the NIST P-384 curve.
	ECDSAP384 KeyType = "ECDSA-P384"
	// ECDSAP521 is an ECDSA public key on the NIST P-521 curve.
	ECDSAP521 KeyType = "ECDSA-P521"
	// ECDSASecp256k1 is an ECDSA public key on the secp256k1 curve.
	ECDSASecp256k1 KeyType = "ECDSA-Secp256k1"
	// RSARS256 is an RSA public key used with RSASSA-PKCS1-v1_5 SHA-256.
	RSARS256 KeyType = "RSA-RS256"
	// RSAPS256 is an RSA public key used with RSASSA-PSS SHA-256.
	RSAPS256 KeyType = "RSA-PS256"
)

// PublicKey contains a result of public key resolution. The key material is
// either raw bytes or a JSON Web Key; the core never handles private keys.
type PublicKey struct {
	Type KeyType

	Bytes []byte
	JWK   *jose.JSONWebKey
}
