/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"
)

// VerificationKey is a public verification key listed in a resolved document.
// Key material is carried either as raw bytes, as a multibase string, or as a
// JSON Web Key.
type VerificationKey struct {
	// ID of the key, either a bare fragment ("#key-1") or a fully qualified
	// key reference ("did:ex:123#key-1").
	ID string
	// Type is the verification method type, e.g. Ed25519VerificationKey2020.
	Type string

	Value     []byte
	Multibase string
	JWK       *jose.JSONWebKey
}

// Material returns the raw public key bytes, decoding the multibase form when
// no raw bytes are present. Keys carried only as JWK have no byte material.
func (k *VerificationKey) Material() ([]byte, error) {
	if len(k.Value) > 0 {
		return k.Value, nil
	}

	if k.Multibase != "" {
		_, decoded, err := multibase.Decode(k.Multibase)
		if err != nil {
			return nil, fmt.Errorf("decode multibase key material of %s: %w", k.ID, err)
		}

		return decoded, nil
	}

	if k.JWK != nil {
		return nil, nil
	}

	return nil, fmt.Errorf("verification key %s has no material", k.ID)
}

// ServiceEndpoint is a service entry of a resolved document. Trust delegation
// entries are represented as services of type DelegationServiceType.
type ServiceEndpoint struct {
	ID         string
	Type       string
	Endpoint   string
	Properties map[string]interface{}
}

// DelegationServiceType marks a service endpoint that delegates trust for a
// credential type to another identifier.
const DelegationServiceType = "TrustDelegation"

// Document is the result of resolving an identifier. A Document is never
// mutated after resolution; re-resolution produces a replacement.
type Document struct {
	ID               string
	VerificationKeys []VerificationKey
	Services         []ServiceEndpoint
}

// VerificationKeyByID locates the verification key referenced by keyID.
// The reference may be fully qualified or a bare fragment; both match keys
// listed either way, mirroring how documents in the wild reference keys.
func (doc *Document) VerificationKeyByID(keyID string) (*VerificationKey, error) {
	fragment := keyID
	if idx := strings.Index(keyID, "#"); idx >= 0 {
		fragment = keyID[idx:]
	} else {
		fragment = "#" + keyID
	}

	for i := range doc.VerificationKeys {
		vk := &doc.VerificationKeys[i]

		if vk.ID == keyID || strings.HasSuffix(vk.ID, fragment) {
			return vk, nil
		}
	}

	return nil, fmt.Errorf("public key with KID %s is not found for DID %s", keyID, doc.ID)
}

// Validate checks internal consistency of a freshly produced document.
func (doc *Document) Validate() error {
	if _, err := Parse(doc.ID); err != nil {
		return err
	}

	if len(doc.VerificationKeys) == 0 {
		return errors.New("document has no verification keys")
	}

	seen := map[string]struct{}{}

	for _, vk := range doc.VerificationKeys {
		if vk.ID == "" {
			return errors.New("verification key without id")
		}

		if _, dup := seen[vk.ID]; dup {
			return fmt.Errorf("duplicate verification key id %s", vk.ID)
		}

		seen[vk.ID] = struct{}{}
	}

	return nil
}
