/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package trust_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veridex/trust-go/did"
	"github.com/veridex/trust-go/trust"
)

type staticGraph struct {
	anchors []trust.Anchor
	edges   []trust.Edge
}

func (g *staticGraph) TrustAnchors() []trust.Anchor {
	return g.anchors
}

func (g *staticGraph) TrustEdges() []trust.Edge {
	return g.edges
}

type staticDocs struct {
	docs map[string]*did.Document
	err  error
}

func (d *staticDocs) Resolve(_ context.Context, didStr string) (*did.Document, error) {
	if d.err != nil {
		return nil, d.err
	}

	doc, ok := d.docs[didStr]
	if !ok {
		return nil, fmt.Errorf("no document for %s", didStr)
	}

	return doc, nil
}

func TestFindPathDirectAnchor(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:issuer", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
	}

	path, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "AnyCredential", 0)
	require.NoError(t, err)
	require.Equal(t, 0, path.Len())
	require.InDelta(t, 1.0, path.Score(), 1e-9)
}

func TestFindPathThroughExplicitEdges(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"University*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:root", To: "did:example:mid", Multiplier: 0.9},
			{From: "did:example:mid", To: "did:example:issuer", Multiplier: 0.8},
		},
	}

	path, err := trust.New(graph, graph).
		FindPath(context.Background(), "did:example:issuer", "UniversityDegreeCredential", 0)
	require.NoError(t, err)
	require.Equal(t, 2, path.Len())
	require.InDelta(t, 0.72, path.Score(), 1e-9)
	require.Equal(t, "did:example:root -> did:example:mid -> did:example:issuer", path.String())
}

func TestFindPathSurvivesCycles(t *testing.T) {
	// a -> b -> c with a back edge b -> a; the search must terminate and
	// still find a -> b -> c.
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:a", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:a", To: "did:example:b", Multiplier: 0.9},
			{From: "did:example:b", To: "did:example:a", Multiplier: 0.9},
			{From: "did:example:b", To: "did:example:c", Multiplier: 0.9},
		},
	}

	path, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:c", "AnyCredential", 0)
	require.NoError(t, err)
	require.Equal(t, "did:example:a -> did:example:b -> did:example:c", path.String())
}

func TestFindPathPrefersShorterThenHigherScore(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			// Long high-score route.
			{From: "did:example:root", To: "did:example:x", Multiplier: 1.0},
			{From: "did:example:x", To: "did:example:issuer", Multiplier: 1.0},
			// Short low-score route wins on length.
			{From: "did:example:root", To: "did:example:issuer", Multiplier: 0.5},
		},
	}

	path, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "Any", 0)
	require.NoError(t, err)
	require.Equal(t, 1, path.Len())
	require.InDelta(t, 0.5, path.Score(), 1e-9)

	t.Run("equal length prefers higher score", func(t *testing.T) {
		graph := &staticGraph{
			anchors: []trust.Anchor{
				{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
			},
			edges: []trust.Edge{
				{From: "did:example:root", To: "did:example:weak", Multiplier: 0.3},
				{From: "did:example:root", To: "did:example:strong", Multiplier: 0.9},
				{From: "did:example:weak", To: "did:example:issuer", Multiplier: 1.0},
				{From: "did:example:strong", To: "did:example:issuer", Multiplier: 1.0},
			},
		}

		path, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "Any", 0)
		require.NoError(t, err)
		require.Equal(t, "did:example:root -> did:example:strong -> did:example:issuer", path.String())
	})
}

func TestFindPathDepthLimits(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:root", To: "did:example:a", Multiplier: 1},
			{From: "did:example:a", To: "did:example:b", Multiplier: 1},
			{From: "did:example:b", To: "did:example:issuer", Multiplier: 1},
		},
	}

	t.Run("path within limit", func(t *testing.T) {
		path, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "Any", 3)
		require.NoError(t, err)
		require.Equal(t, 3, path.Len())
	})

	t.Run("limit below path length", func(t *testing.T) {
		_, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "Any", 2)
		require.ErrorIs(t, err, trust.ErrNoPathFound)
	})

	t.Run("anchor MaxPathLen tightens the limit", func(t *testing.T) {
		capped := &staticGraph{
			anchors: []trust.Anchor{
				{ID: "did:example:root", TypePatterns: []string{"*"}, MaxPathLen: 2, BaseScore: 1.0},
			},
			edges: graph.edges,
		}

		_, err := trust.New(capped, capped).FindPath(context.Background(), "did:example:issuer", "Any", 5)
		require.ErrorIs(t, err, trust.ErrNoPathFound)
	})
}

func TestFindPathNoAnchorForType(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"University*"}, BaseScore: 1.0},
		},
	}

	_, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "DriverLicense", 0)
	require.ErrorIs(t, err, trust.ErrNoPathFound)
}

func TestFindPathEdgeTypeConstraint(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:root", To: "did:example:issuer", TypeConstraint: "Employment*", Multiplier: 1},
		},
	}

	_, err := trust.New(graph, graph).FindPath(context.Background(), "did:example:issuer", "UniversityDegree", 0)
	require.ErrorIs(t, err, trust.ErrNoPathFound)
}

func TestFindPathDocumentDelegations(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
	}

	docs := &staticDocs{docs: map[string]*did.Document{
		"did:example:root": {
			ID:               "did:example:root",
			VerificationKeys: []did.VerificationKey{{ID: "#k1"}},
			Services: []did.ServiceEndpoint{
				{
					ID:       "#delegation-1",
					Type:     did.DelegationServiceType,
					Endpoint: "did:example:issuer",
					Properties: map[string]interface{}{
						"multiplier": 0.7,
					},
				},
				{ID: "#unrelated", Type: "LinkedDomains", Endpoint: "https://example.com"},
			},
		},
	}}

	resolver := trust.New(graph, graph, trust.WithDocumentSource(docs))

	path, err := resolver.FindPath(context.Background(), "did:example:issuer", "Any", 0)
	require.NoError(t, err)
	require.Equal(t, 1, path.Len())
	require.InDelta(t, 0.7, path.Score(), 1e-9)
}

func TestFindPathIssuerUnreachable(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
	}

	docs := &staticDocs{err: errors.New("network down")}

	resolver := trust.New(graph, graph, trust.WithDocumentSource(docs))

	_, err := resolver.FindPath(context.Background(), "did:example:issuer", "Any", 0)
	require.ErrorIs(t, err, trust.ErrIssuerUnreachable)
	require.NotErrorIs(t, err, trust.ErrNoPathFound)
}

func TestFindPathExpansionFailureDoesNotDiscardFoundPath(t *testing.T) {
	// Explicit edges reach the issuer even though delegation documents
	// cannot be resolved.
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:root", To: "did:example:issuer", Multiplier: 0.9},
		},
	}

	docs := &staticDocs{err: errors.New("network down")}

	resolver := trust.New(graph, graph, trust.WithDocumentSource(docs))

	path, err := resolver.FindPath(context.Background(), "did:example:issuer", "Any", 0)
	require.NoError(t, err)
	require.Equal(t, 1, path.Len())
}

func TestFindPathCancelledContext(t *testing.T) {
	graph := &staticGraph{
		anchors: []trust.Anchor{
			{ID: "did:example:root", TypePatterns: []string{"*"}, BaseScore: 1.0},
		},
		edges: []trust.Edge{
			{From: "did:example:root", To: "did:example:issuer", Multiplier: 1},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := trust.New(graph, graph).FindPath(ctx, "did:example:issuer", "Any", 0)
	require.ErrorIs(t, err, trust.ErrIssuerUnreachable)
}
