/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did implements parsing of decentralized identifiers and the
// document model produced by identifier resolution.
package did

import (
	"fmt"
	"strings"
)

const (
	schemePrefix = "did"

	minIdentifierParts = 3
)

// DID is a parsed decentralized identifier. Construction through Parse is the
// only way to obtain a DID; an invalid identifier string never becomes a DID.
type DID struct {
	// Method is the identifier method, e.g. "key" in did:key:z6Mk...
	Method string
	// MethodSpecificID is everything after the method.
	MethodSpecificID string
}

// Parse validates the static format of the given identifier string and splits
// it into its parts. Format errors are detected here, before any resolution
// attempt is made.
func Parse(didStr string) (*DID, error) {
	parts := strings.SplitN(didStr, ":", minIdentifierParts)

	if len(parts) < minIdentifierParts {
		return nil, fmt.Errorf("invalid did %q: must have 3 parts separated by ':'", didStr)
	}

	if parts[0] != schemePrefix {
		return nil, fmt.Errorf("invalid did %q: must start with 'did:'", didStr)
	}

	if parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("invalid did %q: method and method-specific id must not be empty", didStr)
	}

	return &DID{
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// MustParse parses the identifier and panics on malformed input. Intended for
// statically known identifiers in configuration and tests.
func MustParse(didStr string) *DID {
	d, err := Parse(didStr)
	if err != nil {
		panic(err)
	}

	return d
}

// String returns the canonical string form of the identifier.
func (d *DID) String() string {
	return schemePrefix + ":" + d.Method + ":" + d.MethodSpecificID
}
