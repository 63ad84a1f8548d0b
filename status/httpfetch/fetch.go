/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httpfetch fetches status list documents over HTTP with a byte-level
// cache, so that repeated checks against the same list do not refetch it.
// Concurrent cache misses for the same URL are coalesced into a single
// in-flight fetch.
package httpfetch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
)

const (
	defaultCacheBytes = 32 * 1024 * 1024
	defaultTTL        = 5 * time.Minute

	timestampLen = 8
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type inflightFetch struct {
	done      chan struct{}
	data      []byte
	fetchedAt time.Time
	err       error
}

// Fetcher fetches list documents and caches the raw bytes with a TTL.
// Cache entries are replaced on refresh, never updated in place.
type Fetcher struct {
	client httpClient
	cache  *fastcache.Cache
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// Opt configures the fetcher.
type Opt func(*Fetcher)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client httpClient) Opt {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTTL sets how long a fetched document stays fresh.
func WithTTL(ttl time.Duration) Opt {
	return func(f *Fetcher) {
		f.ttl = ttl
	}
}

// WithCacheBytes sets the cache capacity in bytes.
func WithCacheBytes(maxBytes int) Opt {
	return func(f *Fetcher) {
		f.cache = fastcache.New(maxBytes)
	}
}

// New creates a fetcher.
func New(opts ...Opt) *Fetcher {
	f := &Fetcher{
		client:   http.DefaultClient,
		cache:    fastcache.New(defaultCacheBytes),
		ttl:      defaultTTL,
		now:      time.Now,
		inflight: map[string]*inflightFetch{},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch returns the document at the given URL and the time it was fetched,
// serving from cache while the entry is fresh. A cache miss triggers at most
// one HTTP request per URL: concurrent callers wait on the same fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, time.Time, error) {
	if data, fetchedAt, ok := f.cached(url); ok {
		return data, fetchedAt, nil
	}

	f.mu.Lock()

	if flight, ok := f.inflight[url]; ok {
		f.mu.Unlock()

		select {
		case <-flight.done:
			return flight.data, flight.fetchedAt, flight.err
		case <-ctx.Done():
			return nil, time.Time{}, ctx.Err()
		}
	}

	flight := &inflightFetch{done: make(chan struct{})}
	f.inflight[url] = flight
	f.mu.Unlock()

	flight.data, flight.fetchedAt, flight.err = f.fetchRemote(ctx, url)

	f.mu.Lock()
	delete(f.inflight, url)
	f.mu.Unlock()

	close(flight.done)

	return flight.data, flight.fetchedAt, flight.err
}

// cached reads a fresh cache entry. An entry holding only the timestamp is a
// valid empty document.
func (f *Fetcher) cached(url string) ([]byte, time.Time, bool) {
	entry := f.cache.Get(nil, []byte(url))
	if len(entry) < timestampLen {
		return nil, time.Time{}, false
	}

	fetchedAt := time.Unix(0, int64(binary.BigEndian.Uint64(entry[:timestampLen])))
	if f.now().Sub(fetchedAt) >= f.ttl {
		return nil, time.Time{}, false
	}

	return entry[timestampLen:], fetchedAt, true
}

func (f *Fetcher) fetchRemote(ctx context.Context, url string) ([]byte, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("create status list request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("fetch status list %s: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, time.Time{}, fmt.Errorf("status list fetch failed with status code: %d", resp.StatusCode)
	}

	if resp.Body == nil {
		return nil, time.Time{}, errors.New("empty status list response")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read status list %s: %w", url, err)
	}

	fetchedAt := f.now()

	entry := make([]byte, timestampLen+len(data))
	binary.BigEndian.PutUint64(entry[:timestampLen], uint64(fetchedAt.UnixNano()))
	copy(entry[timestampLen:], data)

	f.cache.Set([]byte(url), entry)

	return data, fetchedAt, nil
}
