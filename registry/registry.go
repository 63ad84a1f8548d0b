/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package registry implements the provider registry: a concurrent catalogue
// mapping capabilities (DID methods, key algorithms, status-list formats) to
// ordered provider chains, plus the trust-anchor configuration surface.
//
// A registry is constructed explicitly and passed to its consumers; several
// independent registries may coexist in one process.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"

	"github.com/veridex/trust-go/trust"
)

// Capability names something a provider can do, namespaced by kind, e.g.
// "did-method/web" or "key-alg/EdDSA".
type Capability string

const (
	didMethodNS    = "did-method/"
	keyAlgorithmNS = "key-alg/"
	statusFormatNS = "status-format/"
)

// DIDMethod is the capability of resolving identifiers of the given method.
func DIDMethod(method string) Capability {
	return Capability(didMethodNS + method)
}

// KeyAlgorithm is the capability of verifying signatures of the given algorithm.
func KeyAlgorithm(algorithm string) Capability {
	return Capability(keyAlgorithmNS + algorithm)
}

// StatusFormat is the capability of checking status references of the given type.
func StatusFormat(format string) Capability {
	return Capability(statusFormatNS + format)
}

// Provider is any pluggable backend. Consumers narrow a Provider to the
// capability-specific interface they need.
type Provider interface {
	ProviderID() string
}

var (
	// ErrCapabilityNotFound means no provider at all is registered for the
	// capability. Not retryable: nobody can do this.
	ErrCapabilityNotFound = errors.New("capability not found")

	// ErrAllProvidersFailed means providers were registered but every one of
	// them returned an error. May be retried against a degraded chain.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrDuplicateProvider means a provider with the same id is already
	// registered under the capability.
	ErrDuplicateProvider = errors.New("provider already registered")
)

type registerOptions struct {
	fallback bool
}

// RegisterOpt configures a Register call.
type RegisterOpt func(*registerOptions)

// AsFallback marks the registration as a deliberate fallback addition,
// allowing a provider id already present under the capability to be appended
// at the end of the chain.
func AsFallback() RegisterOpt {
	return func(o *registerOptions) {
		o.fallback = true
	}
}

// Registry is a thread-safe capability catalogue. Resolution is the hot path
// and takes only a read lock; registration and trust-anchor changes happen
// during startup or configuration reload and take the write lock.
type Registry struct {
	mu        sync.RWMutex
	providers map[Capability][]Provider
	anchors   map[string]trust.Anchor
	edges     []trust.Edge
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		providers: make(map[Capability][]Provider),
		anchors:   make(map[string]trust.Anchor),
	}
}

// Register appends the provider to the capability's chain. A blank capability
// is rejected, as is re-registering a provider id already present under the
// capability unless AsFallback is given.
func (r *Registry) Register(capability Capability, provider Provider, opts ...RegisterOpt) error {
	if strings.TrimSpace(string(capability)) == "" {
		return errors.New("blank capability")
	}

	if provider == nil || provider.ProviderID() == "" {
		return errors.New("provider without id")
	}

	options := &registerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !options.fallback {
		for _, p := range r.providers[capability] {
			if p.ProviderID() == provider.ProviderID() {
				return fmt.Errorf("%w: %s under %s", ErrDuplicateProvider, provider.ProviderID(), capability)
			}
		}
	}

	r.providers[capability] = append(r.providers[capability], provider)

	return nil
}

// Resolve returns the provider chain for the capability in registration
// order. Returns ErrCapabilityNotFound when the chain is empty.
func (r *Registry) Resolve(capability Capability) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := r.providers[capability]
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, capability)
	}

	out := make([]Provider, len(chain))
	copy(out, chain)

	return out, nil
}

// FindByCapability returns all providers whose capability matches the given
// tag: either the full capability or a namespace prefix such as "did-method/".
func (r *Registry) FindByCapability(tag string) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider

	for capability, chain := range r.providers {
		if string(capability) == tag || strings.HasPrefix(string(capability), tag) {
			out = append(out, chain...)
		}
	}

	return lo.UniqBy(out, Provider.ProviderID)
}

// RegisterDIDMethod registers a resolver provider for the given DID method.
func (r *Registry) RegisterDIDMethod(method string, resolver Provider, opts ...RegisterOpt) error {
	return r.Register(DIDMethod(method), resolver, opts...)
}

// RegisterKeyAlgorithm registers a signature verifier provider for the given
// algorithm id.
func (r *Registry) RegisterKeyAlgorithm(algorithm string, verifier Provider, opts ...RegisterOpt) error {
	return r.Register(KeyAlgorithm(algorithm), verifier, opts...)
}

// RegisterStatusBackend registers a status checker provider for the given
// status reference type.
func (r *Registry) RegisterStatusBackend(format string, checker Provider, opts ...RegisterOpt) error {
	return r.Register(StatusFormat(format), checker, opts...)
}

// AddTrustAnchor adds or replaces a trust anchor.
func (r *Registry) AddTrustAnchor(anchor trust.Anchor) error {
	if err := anchor.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchors[anchor.ID] = anchor

	return nil
}

// RemoveTrustAnchor removes the anchor with the given identifier, if present.
func (r *Registry) RemoveTrustAnchor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.anchors, id)
}

// TrustAnchors returns the configured anchors sorted by identifier.
func (r *Registry) TrustAnchors() []trust.Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	anchors := lo.Values(r.anchors)

	slices.SortFunc(anchors, func(a, b trust.Anchor) int {
		return strings.Compare(a.ID, b.ID)
	})

	return anchors
}

// AddTrustEdge adds an explicit delegation edge to the registry.
func (r *Registry) AddTrustEdge(edge trust.Edge) error {
	if edge.From == "" || edge.To == "" {
		return errors.New("trust edge endpoints must not be empty")
	}

	if edge.Multiplier <= 0 || edge.Multiplier > 1 {
		return fmt.Errorf("trust edge %s->%s: multiplier %v outside (0.0, 1.0]", edge.From, edge.To, edge.Multiplier)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.edges = append(r.edges, edge)

	return nil
}

// TrustEdges returns the explicitly configured delegation edges.
func (r *Registry) TrustEdges() []trust.Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]trust.Edge, len(r.edges))
	copy(out, r.edges)

	return out
}
