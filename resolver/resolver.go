/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resolver implements the identifier resolution service. It selects
// method-specific resolver providers from the registry, falls through the
// provider chain sequentially with a per-provider timeout, and caches
// successful resolutions with a TTL. Concurrent resolutions of the same
// identifier are coalesced into a single in-flight fetch.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/veridex/trust-go/did"
	"github.com/veridex/trust-go/registry"
)

var (
	// ErrInvalidFormat means the identifier is statically malformed. Detected
	// before any provider is contacted.
	ErrInvalidFormat = errors.New("invalid identifier format")

	// ErrMethodNotRegistered means no resolver provider is registered for the
	// identifier's method.
	ErrMethodNotRegistered = errors.New("did method not registered")

	// ErrNotFound means the identifier does not exist according to every
	// provider that could be asked.
	ErrNotFound = errors.New("did not found")

	// ErrResolverTimeout means a provider did not answer within its timeout.
	ErrResolverTimeout = errors.New("resolver timeout")
)

const (
	defaultCacheSize       = 100
	defaultCacheTTL        = 5 * time.Minute
	defaultProviderTimeout = 10 * time.Second
)

type didResolver interface {
	ResolveDID(ctx context.Context, didStr string) (*did.Document, error)
}

type providerSource interface {
	Resolve(capability registry.Capability) ([]registry.Provider, error)
}

type inflightResolution struct {
	done chan struct{}
	doc  *did.Document
	err  error
}

// Service resolves identifiers to documents.
type Service struct {
	providers       providerSource
	providerTimeout time.Duration

	cache *expirable.LRU[string, *did.Document]

	mu       sync.Mutex
	inflight map[string]*inflightResolution
}

type options struct {
	cacheSize       int
	cacheTTL        time.Duration
	providerTimeout time.Duration
}

// Opt configures the resolution service.
type Opt func(*options)

// WithCacheSize sets the maximum number of cached documents.
func WithCacheSize(size int) Opt {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithCacheTTL sets how long a resolved document stays fresh. A refresh
// replaces the cache entry; entries are never mutated in place.
func WithCacheTTL(ttl time.Duration) Opt {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithProviderTimeout bounds every single provider attempt.
func WithProviderTimeout(timeout time.Duration) Opt {
	return func(o *options) {
		o.providerTimeout = timeout
	}
}

// New creates a resolution service on top of the given provider source.
func New(providers providerSource, opts ...Opt) *Service {
	o := &options{
		cacheSize:       defaultCacheSize,
		cacheTTL:        defaultCacheTTL,
		providerTimeout: defaultProviderTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	return &Service{
		providers:       providers,
		providerTimeout: o.providerTimeout,
		cache:           expirable.NewLRU[string, *did.Document](o.cacheSize, nil, o.cacheTTL),
		inflight:        map[string]*inflightResolution{},
	}
}

// Resolve resolves the identifier to its document. A cache hit answers
// without any provider call.
func (s *Service) Resolve(ctx context.Context, didStr string) (*did.Document, error) {
	parsed, err := did.Parse(didStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, err)
	}

	if doc, ok := s.cache.Get(didStr); ok {
		return doc, nil
	}

	s.mu.Lock()

	if flight, ok := s.inflight[didStr]; ok {
		s.mu.Unlock()

		select {
		case <-flight.done:
			return flight.doc, flight.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	flight := &inflightResolution{done: make(chan struct{})}
	s.inflight[didStr] = flight
	s.mu.Unlock()

	flight.doc, flight.err = s.resolveChain(ctx, parsed.Method, didStr)

	if flight.err == nil {
		s.cache.Add(didStr, flight.doc)
	}

	s.mu.Lock()
	delete(s.inflight, didStr)
	s.mu.Unlock()

	close(flight.done)

	return flight.doc, flight.err
}

// resolveChain tries the method's providers sequentially, in registration
// order. Sequential on purpose: racing providers would amplify load on
// downstream services.
func (s *Service) resolveChain(ctx context.Context, method, didStr string) (*did.Document, error) {
	providers, err := s.providers.Resolve(registry.DIDMethod(method))
	if err != nil {
		if errors.Is(err, registry.ErrCapabilityNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMethodNotRegistered, method)
		}

		return nil, err
	}

	var (
		attemptErrs []error
		allNotFound = true
	)

	for _, p := range providers {
		r, ok := p.(didResolver)
		if !ok {
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: does not implement did resolution", p.ProviderID()))
			allNotFound = false

			continue
		}

		doc, err := s.resolveOnce(ctx, r, didStr)
		if err == nil {
			return doc, nil
		}

		if !errors.Is(err, ErrNotFound) {
			allNotFound = false
		}

		attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", p.ProviderID(), err))

		if ctx.Err() != nil {
			break
		}
	}

	if allNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, didStr)
	}

	return nil, fmt.Errorf("%w: resolve %s: %w", registry.ErrAllProvidersFailed, didStr, errors.Join(attemptErrs...))
}

func (s *Service) resolveOnce(ctx context.Context, r didResolver, didStr string) (*did.Document, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	doc, err := r.ResolveDID(attemptCtx, didStr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrResolverTimeout, err)
		}

		return nil, err
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("resolved document is invalid: %w", err)
	}

	return doc, nil
}
