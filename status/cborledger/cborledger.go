/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cborledger checks status references against an index-addressed
// ledger document: a CBOR map from claim index to state code, typically
// anchored in external storage and served over HTTP.
package cborledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/veridex/trust-go/claim"
	"github.com/veridex/trust-go/status"
)

const (
	// EntryType is the status reference type this backend serves.
	EntryType = "IndexLedgerEntry"

	fldLedger = "ledger"
	fldIndex  = "ledgerIndex"
)

// State codes of ledger entries. An index absent from the ledger is active.
const (
	codeActive    = 0
	codeRevoked   = 1
	codeSuspended = 2
)

type ledgerFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, time.Time, error)
}

// Checker decodes index-addressed CBOR status ledgers.
type Checker struct {
	fetcher ledgerFetcher
}

// New creates a ledger checker on top of the given fetcher.
func New(fetcher ledgerFetcher) *Checker {
	return &Checker{fetcher: fetcher}
}

// ProviderID identifies this backend in a provider registry.
func (c *Checker) ProviderID() string {
	return "cbor-index-ledger"
}

// CheckStatus fetches the referenced ledger and looks up the claim's entry.
func (c *Checker) CheckStatus(ctx context.Context, ref *claim.Status) (*status.Record, error) {
	if ref.Type != EntryType {
		return nil, fmt.Errorf("status type %s not supported", ref.Type)
	}

	ledgerURL, ok := ref.CustomFields[fldLedger].(string)
	if !ok || ledgerURL == "" {
		return nil, fmt.Errorf("%s field does not exist in status reference", fldLedger)
	}

	index, err := ledgerIndex(ref)
	if err != nil {
		return nil, err
	}

	data, fetchedAt, err := c.fetcher.Fetch(ctx, ledgerURL)
	if err != nil {
		return nil, err
	}

	var entries map[uint64]uint8

	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode status ledger: %w", err)
	}

	record := &status.Record{
		ListID:    ledgerURL,
		Index:     index,
		Purpose:   status.PurposeRevocation,
		FetchedAt: fetchedAt,
	}

	switch entries[uint64(index)] {
	case codeActive:
		record.State = status.StateActive
	case codeRevoked:
		record.State = status.StateRevoked
	case codeSuspended:
		record.State = status.StateSuspended
		record.Purpose = status.PurposeSuspension
	default:
		return nil, fmt.Errorf("unknown ledger state code %d at index %d", entries[uint64(index)], index)
	}

	return record, nil
}

func ledgerIndex(ref *claim.Status) (int, error) {
	var index int

	switch idx := ref.CustomFields[fldIndex].(type) {
	case string:
		parsed, err := strconv.Atoi(idx)
		if err != nil {
			return -1, fmt.Errorf("unable to get %s: %w", fldIndex, err)
		}

		index = parsed
	case float64:
		index = int(idx)
	default:
		return -1, fmt.Errorf("%s field does not exist in status reference", fldIndex)
	}

	if index < 0 {
		return -1, fmt.Errorf("%s must not be negative", fldIndex)
	}

	return index, nil
}
