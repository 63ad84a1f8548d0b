/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claim

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
)

const jwsParts = 3

// ParseJWS builds a Claim from a compact JWS envelope. The envelope signature
// becomes the claim's detached proof: the proof algorithm is the JWS "alg",
// the verification method is the "kid" header, and the signature covers the
// JWS signing input instead of the canonical claim form.
//
// The signature is not verified here; verification is the proof checker's job.
func ParseJWS(serialized string) (*Claim, error) {
	jws, err := jose.ParseSigned(serialized)
	if err != nil {
		return nil, fmt.Errorf("parse claim JWS: %w", err)
	}

	if len(jws.Signatures) != 1 {
		return nil, errors.New("claim JWS must have exactly one signature")
	}

	signature := jws.Signatures[0]

	if signature.Protected.KeyID == "" {
		return nil, errors.New("claim JWS misses kid header")
	}

	c, err := Parse(jws.UnsafePayloadWithoutVerification(), WithDisabledSchemaValidation())
	if err != nil {
		return nil, err
	}

	parts := strings.Split(serialized, ".")
	if len(parts) != jwsParts {
		return nil, errors.New("claim JWS must have three parts")
	}

	c.signingInput = []byte(parts[0] + "." + parts[1])
	c.Proof = &Proof{
		Type:               signature.Protected.Algorithm,
		VerificationMethod: signature.Protected.KeyID,
		ProofValue:         base64.RawURLEncoding.EncodeToString(signature.Signature),
	}

	return c, nil
}
