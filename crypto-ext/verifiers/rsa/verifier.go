/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rsa

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/veridex/trust-go/crypto-ext/pubkey"
)

// PS256Verifier verifies an RSASSA-PSS SHA-256 signature.
type PS256Verifier struct{}

// NewPS256 creates a new PS256Verifier.
func NewPS256() *PS256Verifier {
	return &PS256Verifier{}
}

// ProviderID identifies this verifier in a provider registry.
func (sv *PS256Verifier) ProviderID() string {
	return "verifier-rsa-ps256"
}

// SupportedKeyType checks if verifier supports given key.
func (sv *PS256Verifier) SupportedKeyType(keyType pubkey.KeyType) bool {
	return keyType == pubkey.RSAPS256
}

// Verify verifies the signature.
func (sv *PS256Verifier) Verify(_ context.Context, signature, msg []byte, key *pubkey.PublicKey) error {
	pub, err := parseKey(sv.SupportedKeyType(key.Type), key)
	if err != nil {
		return err
	}

	hashed, err := hashMsg(msg)
	if err != nil {
		return err
	}

	if err := rsa.VerifyPSS(pub, crypto.SHA256, hashed, signature, nil); err != nil {
		return errors.New("rsa: invalid signature")
	}

	return nil
}

// RS256Verifier verifies an RSASSA-PKCS1-v1_5 SHA-256 signature.
type RS256Verifier struct{}

// NewRS256 creates a new RS256Verifier.
func NewRS256() *RS256Verifier {
	return &RS256Verifier{}
}

// ProviderID identifies this verifier in a provider registry.
func (sv *RS256Verifier) ProviderID() string {
	return "verifier-rsa-rs256"
}

// SupportedKeyType checks if verifier supports given key.
func (sv *RS256Verifier) SupportedKeyType(keyType pubkey.KeyType) bool {
	return keyType == pubkey.RSARS256
}

// Verify verifies the signature.
func (sv *RS256Verifier) Verify(_ context.Context, signature, msg []byte, key *pubkey.PublicKey) error {
	pub, err := parseKey(sv.SupportedKeyType(key.Type), key)
	if err != nil {
		return err
	}

	hashed, err := hashMsg(msg)
	if err != nil {
		return err
	}

	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed, signature); err != nil {
		return errors.New("rsa: invalid signature")
	}

	return nil
}

func parseKey(supported bool, key *pubkey.PublicKey) (*rsa.PublicKey, error) {
	if !supported {
		return nil, fmt.Errorf("unsupported key type %s", key.Type)
	}

	if key.JWK != nil {
		pub, ok := key.JWK.Key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("rsa: invalid public key type")
		}

		return pub, nil
	}

	pub, err := x509.ParsePKCS1PublicKey(key.Bytes)
	if err != nil {
		return nil, errors.New("rsa: invalid public key")
	}

	return pub, nil
}

func hashMsg(msg []byte) ([]byte, error) {
	hasher := crypto.SHA256.New()

	if _, err := hasher.Write(msg); err != nil {
		return nil, errors.New("rsa: hash error")
	}

	return hasher.Sum(nil), nil
}
