/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claim implements the signed claim wire model: parsing from JSON and
// compact JWS forms, structural validation, and deterministic
// canonicalization used for proof verification.
package claim

import (
	"fmt"
	"time"

	jsonutil "github.com/veridex/trust-go/util/json"
)

// BaseClaimType is present in the type list of every claim; trust decisions
// key off the more specific types next to it.
const BaseClaimType = "VerifiableCredential"

// Proof is a detached signature over the canonical form of a claim.
type Proof struct {
	// Type is the proof algorithm id, e.g. Ed25519Signature2020.
	Type string
	// VerificationMethod references the verification key, e.g. "did:ex:a#key-1".
	VerificationMethod string
	Created            *time.Time
	// ProofValue carries the signature bytes, multibase or raw base64url encoded.
	ProofValue string

	CustomFields map[string]interface{}
}

// Status references an externally fetchable status list entry.
type Status struct {
	ID   string
	Type string

	CustomFields map[string]interface{}
}

// Claim is a signed assertion about a subject, made by an issuer. A parsed
// Claim is never mutated; verification reads it only.
type Claim struct {
	Issuer     string
	Types      []string
	Subject    map[string]interface{}
	Expiration *time.Time
	Status     *Status
	Proof      *Proof

	CustomFields map[string]interface{}

	// signingInput is set for claims ingested from a JWS envelope; the
	// signature covers these exact bytes instead of the canonical form.
	signingInput []byte
}

// PrimaryType returns the most specific credential type: the first entry of
// the type list that is not the base claim type.
func (c *Claim) PrimaryType() string {
	for _, t := range c.Types {
		if t != BaseClaimType {
			return t
		}
	}

	if len(c.Types) > 0 {
		return c.Types[0]
	}

	return ""
}

// Expired reports whether the claim carries an expiration in the past.
func (c *Claim) Expired(now time.Time) bool {
	return c.Expiration != nil && now.After(*c.Expiration)
}

// Enveloped reports whether the claim was ingested from a JWS envelope. The
// proof value of an enveloped claim is always base64url encoded.
func (c *Claim) Enveloped() bool {
	return c.signingInput != nil
}

// SignedPayload returns the bytes the proof signature covers: the JWS signing
// input for enveloped claims, otherwise the canonical form of the claim
// without its proof.
func (c *Claim) SignedPayload() ([]byte, error) {
	if c.signingInput != nil {
		return c.signingInput, nil
	}

	doc, err := c.toJSONObject()
	if err != nil {
		return nil, err
	}

	return Canonicalize(jsonutil.CopyExcept(doc, fldProof))
}

// MarshalJSON serializes the claim back to its wire form.
func (c *Claim) MarshalJSON() ([]byte, error) {
	doc, err := c.toJSONObject()
	if err != nil {
		return nil, err
	}

	return Canonicalize(doc)
}

func (c *Claim) toJSONObject() (map[string]interface{}, error) {
	doc := map[string]interface{}{}

	for k, v := range c.CustomFields {
		doc[k] = v
	}

	doc[fldIssuer] = c.Issuer

	types := make([]interface{}, len(c.Types))
	for i, t := range c.Types {
		types[i] = t
	}

	doc[fldType] = types
	doc[fldSubject] = c.Subject

	if c.Expiration != nil {
		doc[fldExpiration] = c.Expiration.UTC().Format(time.RFC3339)
	}

	if c.Status != nil {
		status, err := jsonutil.MergeCustomFields(map[string]interface{}{
			"id":   c.Status.ID,
			"type": c.Status.Type,
		}, c.Status.CustomFields)
		if err != nil {
			return nil, fmt.Errorf("serialize claim status: %w", err)
		}

		doc[fldStatus] = status
	}

	if c.Proof != nil {
		proof := map[string]interface{}{
			"type":               c.Proof.Type,
			"verificationMethod": c.Proof.VerificationMethod,
			"proofValue":         c.Proof.ProofValue,
		}

		if c.Proof.Created != nil {
			proof["created"] = c.Proof.Created.UTC().Format(time.RFC3339)
		}

		jsonutil.AddCustomFields(proof, c.Proof.CustomFields)

		doc[fldProof] = proof
	}

	return doc, nil
}
