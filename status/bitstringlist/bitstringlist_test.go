/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bitstringlist_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/status"
	"github.com/veridex/trust-go/status/bitstringlist"
	"github.com/veridex/trust-go/status/internal/bitstring"
)

type fakeFetcher struct {
	docs map[string][]byte
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}

	doc, ok := f.docs[url]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("no document at %s", url)
	}

	return doc, time.Now(), nil
}

func listDocument(t *testing.T, bits []byte) []byte {
	t.Helper()

	encoded, err := bitstring.Encode(bits)
	require.NoError(t, err)

	return []byte(fmt.Sprintf(`{"credentialSubject":{"encodedList":%q}}`, encoded))
}

func statusRef(listURL string, index interface{}, purpose string) *claim.Status {
	cf := map[string]interface{}{
		"statusListCredential": listURL,
		"statusListIndex":      index,
	}

	if purpose != "" {
		cf["statusPurpose"] = purpose
	}

	return &claim.Status{
		ID:           listURL + "#entry",
		Type:         bitstringlist.EntryType,
		CustomFields: cf,
	}
}

func TestCheckStatus(t *testing.T) {
	const listURL = "https://issuer.example/status/3"

	// Bit 5 set, everything else clear.
	fetcher := &fakeFetcher{docs: map[string][]byte{
		listURL: listDocument(t, []byte{0b0010_0000}),
	}}

	checker := bitstringlist.New(fetcher)
	require.Equal(t, "bitstring-status-list", checker.ProviderID())

	t.Run("active", func(t *testing.T) {
		record, err := checker.CheckStatus(context.Background(), statusRef(listURL, "3", ""))
		require.NoError(t, err)
		require.Equal(t, status.StateActive, record.State)
		require.Equal(t, status.PurposeRevocation, record.Purpose)
		require.Equal(t, listURL, record.ListID)
		require.Equal(t, 3, record.Index)
	})

	t.Run("revoked", func(t *testing.T) {
		record, err := checker.CheckStatus(context.Background(), statusRef(listURL, "5", ""))
		require.NoError(t, err)
		require.Equal(t, status.StateRevoked, record.State)
	})

	t.Run("suspended", func(t *testing.T) {
		record, err := checker.CheckStatus(context.Background(), statusRef(listURL, "5", "suspension"))
		require.NoError(t, err)
		require.Equal(t, status.StateSuspended, record.State)
		require.Equal(t, status.PurposeSuspension, record.Purpose)
	})

	t.Run("numeric index", func(t *testing.T) {
		record, err := checker.CheckStatus(context.Background(), statusRef(listURL, float64(5), ""))
		require.NoError(t, err)
		require.Equal(t, status.StateRevoked, record.State)
	})
}

func TestCheckStatusTopLevelEncodedList(t *testing.T) {
	const listURL = "https://issuer.example/status/flat"

	encoded, err := bitstring.Encode([]byte{0b0000_0001})
	require.NoError(t, err)

	fetcher := &fakeFetcher{docs: map[string][]byte{
		listURL: []byte(fmt.Sprintf(`{"encodedList":%q}`, encoded)),
	}}

	record, err := bitstringlist.New(fetcher).CheckStatus(context.Background(), statusRef(listURL, "0", ""))
	require.NoError(t, err)
	require.Equal(t, status.StateRevoked, record.State)
}

func TestCheckStatusRejections(t *testing.T) {
	const listURL = "https://issuer.example/status/3"

	fetcher := &fakeFetcher{docs: map[string][]byte{
		listURL: listDocument(t, []byte{0}),
	}}

	checker := bitstringlist.New(fetcher)

	t.Run("wrong type", func(t *testing.T) {
		_, err := checker.CheckStatus(context.Background(),
			&claim.Status{ID: "x", Type: "SomethingElse"})
		require.Error(t, err)
	})

	t.Run("missing list url", func(t *testing.T) {
		_, err := checker.CheckStatus(context.Background(), &claim.Status{
			ID:           "x",
			Type:         bitstringlist.EntryType,
			CustomFields: map[string]interface{}{"statusListIndex": "1"},
		})
		require.Error(t, err)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := checker.CheckStatus(context.Background(), &claim.Status{
			ID:           "x",
			Type:         bitstringlist.EntryType,
			CustomFields: map[string]interface{}{"statusListCredential": listURL},
		})
		require.Error(t, err)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := checker.CheckStatus(context.Background(), statusRef(listURL, "5000", ""))
		require.Error(t, err)
	})

	t.Run("unsupported purpose", func(t *testing.T) {
		_, err := checker.CheckStatus(context.Background(), statusRef(listURL, "1", "message"))
		require.Error(t, err)
	})

	t.Run("fetch failure", func(t *testing.T) {
		broken := bitstringlist.New(&fakeFetcher{err: errors.New("network down")})

		_, err := broken.CheckStatus(context.Background(), statusRef(listURL, "1", ""))
		require.ErrorContains(t, err, "network down")
	})

	t.Run("document without encodedList", func(t *testing.T) {
		fetcher := &fakeFetcher{docs: map[string][]byte{
			listURL: []byte(`{"credentialSubject":{}}`),
		}}

		_, err := bitstringlist.New(fetcher).CheckStatus(context.Background(), statusRef(listURL, "1", ""))
		require.ErrorContains(t, err, "encodedList")
	})
}
