/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package trust implements the trust-anchor graph model and the path
// resolver that connects configured anchors to credential issuers through
// delegation edges.
package trust

import (
	"fmt"
	"strings"
)

// Anchor is an identifier explicitly configured as a root of trust for a set
// of credential type patterns.
type Anchor struct {
	// ID is the anchor identifier.
	ID string
	// TypePatterns lists the credential types the anchor is trusted for.
	// A pattern is either an exact type, a prefix ending with '*', or "*".
	TypePatterns []string
	// MaxPathLen caps the number of delegation edges in paths rooted at this
	// anchor. Zero means the resolver-wide depth limit applies.
	MaxPathLen int
	// BaseScore is the anchor's base trust score in [0.0, 1.0].
	BaseScore float64
}

// Validate checks the anchor configuration.
func (a Anchor) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("trust anchor without id")
	}

	if a.BaseScore < 0 || a.BaseScore > 1 {
		return fmt.Errorf("trust anchor %s: base score %v outside [0.0, 1.0]", a.ID, a.BaseScore)
	}

	if len(a.TypePatterns) == 0 {
		return fmt.Errorf("trust anchor %s: no credential type patterns", a.ID)
	}

	return nil
}

// Matches reports whether the anchor is trusted for the given credential type.
func (a Anchor) Matches(credentialType string) bool {
	for _, pattern := range a.TypePatterns {
		if matchPattern(pattern, credentialType) {
			return true
		}
	}

	return false
}

// Edge is a directed trust delegation between two identifiers.
type Edge struct {
	From string
	To   string
	// TypeConstraint limits the delegation to a credential type pattern.
	// Empty means the delegation covers any type.
	TypeConstraint string
	// Multiplier scales the composite score of paths passing this edge.
	Multiplier float64
}

// Covers reports whether the edge delegates trust for the given credential type.
func (e Edge) Covers(credentialType string) bool {
	if e.TypeConstraint == "" {
		return true
	}

	return matchPattern(e.TypeConstraint, credentialType)
}

// Path is an ordered chain of delegation edges from an anchor to an issuer.
// A path never revisits an identifier, so it is acyclic by construction.
type Path struct {
	Anchor Anchor
	Edges  []Edge
}

// Score returns the composite trust score: the anchor base score multiplied
// by every edge multiplier along the path.
func (p *Path) Score() float64 {
	score := p.Anchor.BaseScore

	for _, e := range p.Edges {
		score *= e.Multiplier
	}

	return score
}

// Identifiers returns the identifiers on the path in order, anchor first.
func (p *Path) Identifiers() []string {
	ids := make([]string, 0, len(p.Edges)+1)
	ids = append(ids, p.Anchor.ID)

	for _, e := range p.Edges {
		ids = append(ids, e.To)
	}

	return ids
}

// Len returns the number of delegation edges on the path.
func (p *Path) Len() int {
	return len(p.Edges)
}

func (p *Path) String() string {
	return strings.Join(p.Identifiers(), " -> ")
}

func matchPattern(pattern, credentialType string) bool {
	if pattern == "*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(credentialType, prefix)
	}

	return pattern == credentialType
}
