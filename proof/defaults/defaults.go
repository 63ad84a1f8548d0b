/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package defaults wires the bundled signature verifiers and proof
// descriptors together. Registration is explicit and happens once at process
// startup; nothing here is discovered at runtime.
package defaults

import (
	"github.com/veridex/trust-go/crypto-ext/verifiers/ecdsa"
	"github.com/veridex/trust-go/crypto-ext/verifiers/ed25519"
	"github.com/veridex/trust-go/crypto-ext/verifiers/rsa"
	"github.com/veridex/trust-go/proof"
	"github.com/veridex/trust-go/proof/checker"
	"github.com/veridex/trust-go/registry"
)

// Descriptors returns every bundled proof descriptor.
func Descriptors() []proof.Descriptor {
	return []proof.Descriptor{
		proof.NewEd25519Signature2020(),
		proof.NewEcdsaSecp256k1Signature2019(),
		proof.NewEdDSA(),
		proof.NewES256(),
		proof.NewES256K(),
		proof.NewES384(),
		proof.NewES521(),
		proof.NewRS256(),
		proof.NewPS256(),
	}
}

// RegisterVerifiers registers the bundled signature verifiers under every
// algorithm they serve.
func RegisterVerifiers(reg *registry.Registry) error {
	wiring := map[string]registry.Provider{
		"Ed25519Signature2020":        ed25519.New(),
		"EdDSA":                       ed25519.New(),
		"EcdsaSecp256k1Signature2019": ecdsa.NewSecp256k1(),
		"ES256K":                      ecdsa.NewSecp256k1(),
		"ES256":                       ecdsa.NewES256(),
		"ES384":                       ecdsa.NewES384(),
		"ES521":                       ecdsa.NewES521(),
		"RS256":                       rsa.NewRS256(),
		"PS256":                       rsa.NewPS256(),
	}

	for algorithm, verifier := range wiring {
		if err := reg.RegisterKeyAlgorithm(algorithm, verifier); err != nil {
			return err
		}
	}

	return nil
}

// NewChecker creates a proof checker with every bundled descriptor, selecting
// verifiers from the given registry.
func NewChecker(reg *registry.Registry) *checker.ProofChecker {
	return checker.New(reg, checker.WithProofTypes(Descriptors()...))
}
