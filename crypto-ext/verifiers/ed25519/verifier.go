/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ed25519

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/veridex/trust-go/crypto-ext/pubkey"
)

// Verifier verifies an Ed25519 signature taking Ed25519 public key bytes as input.
type Verifier struct{}

// New creates a new ed25519 Verifier.
func New() *Verifier {
	return &Verifier{}
}

// ProviderID identifies this verifier in a provider registry.
func (sv *Verifier) ProviderID() string {
	return "verifier-ed25519"
}

// SupportedKeyType checks if verifier supports given key.
func (sv *Verifier) SupportedKeyType(keyType pubkey.KeyType) bool {
	return keyType == pubkey.ED25519
}

// Verify verifies the signature.
func (sv *Verifier) Verify(_ context.Context, signature, msg []byte, pubKey *pubkey.PublicKey) error {
	if !sv.SupportedKeyType(pubKey.Type) {
		return fmt.Errorf("unsupported key type %s", pubKey.Type)
	}

	value := pubKey.Bytes

	if pubKey.JWK != nil {
		var ok bool

		value, ok = pubKey.JWK.Public().Key.(ed25519.PublicKey)
		if !ok {
			return errors.New("public key not ed25519.PublicKey")
		}
	}

	// ed25519 panics if key size is wrong
	if len(value) != ed25519.PublicKeySize {
		return errors.New("ed25519: invalid key")
	}

	if !ed25519.Verify(value, msg, signature) {
		return errors.New("ed25519: invalid signature")
	}

	return nil
}
