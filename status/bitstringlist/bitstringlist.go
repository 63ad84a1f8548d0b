/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstringlist checks status references of the bitstring status
// list format: a gzip-compressed, base64url or multibase encoded bitstring
// published inside a list document, addressed by bit index.
package bitstringlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/status"
	"github.com/veridex/trust-go/status/internal/bitstring"
)

const (
	// EntryType is the status reference type this backend serves.
	EntryType = "BitstringStatusListEntry"

	// fldListCredential holds the URL of the list document.
	fldListCredential = "statusListCredential"
	// fldListIndex holds the bit position of the claim in the list.
	fldListIndex = "statusListIndex"
	// fldPurpose declares what a set bit means. Only revocation and
	// suspension are supported.
	fldPurpose = "statusPurpose"
)

type listFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, time.Time, error)
}

// Checker decodes bitstring status lists.
type Checker struct {
	fetcher listFetcher
}

// New creates a bitstring list checker on top of the given fetcher.
func New(fetcher listFetcher) *Checker {
	return &Checker{fetcher: fetcher}
}

// ProviderID identifies this backend in a provider registry.
func (c *Checker) ProviderID() string {
	return "bitstring-status-list"
}

// CheckStatus fetches the referenced list and reads the claim's bit.
func (c *Checker) CheckStatus(ctx context.Context, ref *claim.Status) (*status.Record, error) {
	if ref.Type != EntryType {
		return nil, fmt.Errorf("status type %s not supported", ref.Type)
	}

	listURL, ok := ref.CustomFields[fldListCredential].(string)
	if !ok || listURL == "" {
		return nil, fmt.Errorf("%s field does not exist in status reference", fldListCredential)
	}

	index, err := listIndex(ref)
	if err != nil {
		return nil, err
	}

	purpose, err := listPurpose(ref)
	if err != nil {
		return nil, err
	}

	data, fetchedAt, err := c.fetcher.Fetch(ctx, listURL)
	if err != nil {
		return nil, err
	}

	encodedList := gjson.GetBytes(data, "credentialSubject.encodedList")
	if !encodedList.Exists() {
		encodedList = gjson.GetBytes(data, "encodedList")
	}

	if !encodedList.Exists() {
		return nil, errors.New("list document misses encodedList")
	}

	encoded := encodedList.String()

	bits, err := bitstring.Decode(encoded, bitstring.WithMultiBaseEncoding(isMultibase(encoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bits: %w", err)
	}

	bitSet, err := bitstring.BitAt(bits, index)
	if err != nil {
		return nil, err
	}

	record := &status.Record{
		ListID:    listURL,
		Index:     index,
		State:     status.StateActive,
		Purpose:   purpose,
		FetchedAt: fetchedAt,
	}

	if bitSet {
		switch purpose {
		case status.PurposeRevocation:
			record.State = status.StateRevoked
		case status.PurposeSuspension:
			record.State = status.StateSuspended
		}
	}

	return record, nil
}

func listIndex(ref *claim.Status) (int, error) {
	switch idx := ref.CustomFields[fldListIndex].(type) {
	case string:
		index, err := strconv.Atoi(idx)
		if err != nil {
			return -1, fmt.Errorf("unable to get statusListIndex: %w", err)
		}

		return index, nil
	case float64:
		return int(idx), nil
	default:
		return -1, fmt.Errorf("%s field does not exist in status reference", fldListIndex)
	}
}

func listPurpose(ref *claim.Status) (string, error) {
	raw, ok := ref.CustomFields[fldPurpose]
	if !ok {
		return status.PurposeRevocation, nil
	}

	purpose, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", fldPurpose)
	}

	if purpose != status.PurposeRevocation && purpose != status.PurposeSuspension {
		return "", fmt.Errorf("unsupported status purpose: %s", purpose)
	}

	return purpose, nil
}

func isMultibase(encoded string) bool {
	// Multibase-encoded lists carry the base58btc prefix; plain lists are
	// raw base64url.
	return len(encoded) > 0 && encoded[0] == 'z'
}
