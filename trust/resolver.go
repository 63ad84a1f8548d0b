/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"

	"github.com/veridex/trust-go/did"
)

var (
	// ErrNoPathFound means the graph was fully explored within the depth
	// limit and no delegation chain reaches the issuer. A definitive trust
	// failure, not retryable.
	ErrNoPathFound = errors.New("no trust path found")

	// ErrIssuerUnreachable means graph expansion itself failed, e.g. a
	// delegation document could not be resolved. May succeed on retry.
	ErrIssuerUnreachable = errors.New("issuer unreachable")
)

const defaultMaxDepth = 4

// AnchorSource supplies the configured trust anchors.
type AnchorSource interface {
	TrustAnchors() []Anchor
}

// EdgeSource supplies the explicitly configured delegation edges.
type EdgeSource interface {
	TrustEdges() []Edge
}

type documentSource interface {
	Resolve(ctx context.Context, didStr string) (*did.Document, error)
}

// Resolver finds delegation paths from configured trust anchors to credential
// issuers.
type Resolver struct {
	anchors  AnchorSource
	edges    EdgeSource
	docs     documentSource
	maxDepth int
}

// Opt configures the trust path resolver.
type Opt func(*Resolver)

// WithDocumentSource lets the resolver derive delegation edges from the
// service endpoints of resolved documents, in addition to explicit edges.
func WithDocumentSource(docs documentSource) Opt {
	return func(r *Resolver) {
		r.docs = docs
	}
}

// WithMaxDepth sets the depth limit used when FindPath is called without one.
func WithMaxDepth(maxDepth int) Opt {
	return func(r *Resolver) {
		r.maxDepth = maxDepth
	}
}

// New creates a trust path resolver.
func New(anchors AnchorSource, edges EdgeSource, opts ...Opt) *Resolver {
	r := &Resolver{
		anchors:  anchors,
		edges:    edges,
		maxDepth: defaultMaxDepth,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FindPath searches for a delegation path from any anchor trusted for the
// credential type to the issuer. Among the found paths it prefers the
// shorter one, then the higher composite score; the preference is stable for
// identical input graphs. maxDepth is a hard cutoff on edge count; zero
// applies the resolver default.
//
// Edge data originates from external delegation documents and may contain
// cycles; the per-identifier visited set guarantees termination regardless.
func (r *Resolver) FindPath(ctx context.Context, issuer, credentialType string, maxDepth int) (*Path, error) {
	if maxDepth <= 0 {
		maxDepth = r.maxDepth
	}

	anchors := lo.Filter(r.anchors.TrustAnchors(), func(a Anchor, _ int) bool {
		return a.Matches(credentialType)
	})

	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: no trust anchor covers credential type %s", ErrNoPathFound, credentialType)
	}

	slices.SortFunc(anchors, func(a, b Anchor) int {
		return strings.Compare(a.ID, b.ID)
	})

	var (
		best           *Path
		expansionFails []error
	)

	for _, anchor := range anchors {
		limit := maxDepth
		if anchor.MaxPathLen > 0 && anchor.MaxPathLen < limit {
			limit = anchor.MaxPathLen
		}

		path, err := r.searchFromAnchor(ctx, anchor, issuer, credentialType, limit)
		if err != nil {
			expansionFails = append(expansionFails, err)
		}

		best = betterPath(best, path)
	}

	if best != nil {
		return best, nil
	}

	if len(expansionFails) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrIssuerUnreachable, issuer, errors.Join(expansionFails...))
	}

	return nil, fmt.Errorf("%w: %s for credential type %s", ErrNoPathFound, issuer, credentialType)
}

// searchFromAnchor runs a level-bounded BFS rooted at the anchor. It returns
// the best path reaching the issuer at the minimal depth for this anchor,
// or nil with any expansion error encountered along the way.
func (r *Resolver) searchFromAnchor(
	ctx context.Context,
	anchor Anchor,
	issuer, credentialType string,
	maxDepth int,
) (*Path, error) {
	if anchor.ID == issuer {
		return &Path{Anchor: anchor}, nil
	}

	visited := map[string]struct{}{anchor.ID: {}}
	frontier := map[string]*Path{anchor.ID: {Anchor: anchor}}

	var expansionErr error

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("expand trust graph: %w", ctx.Err())
		}

		next := map[string]*Path{}

		for _, node := range sortedKeys(frontier) {
			edges, err := r.outgoingEdges(ctx, node, credentialType)
			if err != nil {
				expansionErr = errors.Join(expansionErr, err)
			}

			for _, edge := range edges {
				if _, seen := visited[edge.To]; seen {
					continue
				}

				candidate := extendPath(frontier[node], edge)

				next[edge.To] = betterPath(next[edge.To], candidate)
			}
		}

		if path, ok := next[issuer]; ok {
			return path, expansionErr
		}

		for node := range next {
			visited[node] = struct{}{}
		}

		frontier = next
	}

	return nil, expansionErr
}

// outgoingEdges collects delegation edges leaving the node that cover the
// credential type: explicit registry edges first, then delegations declared
// in the node's resolved document. A document resolution failure is reported
// but does not discard the explicit edges.
func (r *Resolver) outgoingEdges(ctx context.Context, node, credentialType string) ([]Edge, error) {
	var edges []Edge

	for _, e := range r.edges.TrustEdges() {
		if e.From == node && e.Covers(credentialType) {
			edges = append(edges, e)
		}
	}

	var expansionErr error

	if r.docs != nil {
		delegations, err := r.documentDelegations(ctx, node, credentialType)
		if err != nil {
			expansionErr = err
		}

		edges = append(edges, delegations...)
	}

	slices.SortFunc(edges, func(a, b Edge) int {
		return strings.Compare(a.To, b.To)
	})

	return edges, expansionErr
}

func (r *Resolver) documentDelegations(ctx context.Context, node, credentialType string) ([]Edge, error) {
	doc, err := r.docs.Resolve(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("resolve delegation document of %s: %w", node, err)
	}

	var edges []Edge

	for _, svc := range doc.Services {
		if svc.Type != did.DelegationServiceType {
			continue
		}

		edge := delegationEdge(node, svc)
		if edge.To != "" && edge.To != node && edge.Covers(credentialType) {
			edges = append(edges, edge)
		}
	}

	return edges, nil
}

func delegationEdge(from string, svc did.ServiceEndpoint) Edge {
	edge := Edge{From: from, To: svc.Endpoint, Multiplier: 1.0}

	if to, ok := svc.Properties["to"].(string); ok && to != "" {
		edge.To = to
	}

	if constraint, ok := svc.Properties["credentialType"].(string); ok {
		edge.TypeConstraint = constraint
	}

	if multiplier, ok := svc.Properties["multiplier"].(float64); ok && multiplier > 0 && multiplier <= 1 {
		edge.Multiplier = multiplier
	}

	return edge
}

func extendPath(base *Path, edge Edge) *Path {
	edges := make([]Edge, 0, len(base.Edges)+1)
	edges = append(edges, base.Edges...)
	edges = append(edges, edge)

	return &Path{Anchor: base.Anchor, Edges: edges}
}

// betterPath prefers the shorter path, then the higher composite score, then
// the lexicographically smaller identifier chain. The last tier only breaks
// exact ties, keeping the choice stable for identical input graphs.
func betterPath(current, candidate *Path) *Path {
	switch {
	case candidate == nil:
		return current
	case current == nil:
		return candidate
	case candidate.Len() != current.Len():
		if candidate.Len() < current.Len() {
			return candidate
		}

		return current
	case candidate.Score() != current.Score():
		if candidate.Score() > current.Score() {
			return candidate
		}

		return current
	case candidate.String() < current.String():
		return candidate
	default:
		return current
	}
}

func sortedKeys(m map[string]*Path) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
