/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bitstring_test

import (
	"encoding/base64"
	"testing"

	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"

	"github.com/veridex/trust-go/status/internal/bitstring"
)

func TestEncodeDecode(t *testing.T) {
	bits := []byte{0b0000_0101, 0b1000_0000}

	encoded, err := bitstring.Encode(bits)
	require.NoError(t, err)

	decoded, err := bitstring.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, bits, decoded)
}

func TestDecodeMultibase(t *testing.T) {
	bits := []byte{0b0000_0001}

	encoded, err := bitstring.Encode(bits)
	require.NoError(t, err)

	// Same gzipped payload, wrapped in multibase base58btc instead of base64url.
	gzipped, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	mb, err := multibase.Encode(multibase.Base58BTC, gzipped)
	require.NoError(t, err)

	decoded, err := bitstring.Decode(mb, bitstring.WithMultiBaseEncoding(true))
	require.NoError(t, err)
	require.Equal(t, bits, decoded)

	t.Run("invalid multibase", func(t *testing.T) {
		_, err := bitstring.Decode("!!!", bitstring.WithMultiBaseEncoding(true))
		require.Error(t, err)
	})
}

func TestDecodeRejections(t *testing.T) {
	t.Run("not base64", func(t *testing.T) {
		_, err := bitstring.Decode("!!!")
		require.Error(t, err)
	})

	t.Run("not gzip", func(t *testing.T) {
		_, err := bitstring.Decode("bm90LWd6aXA")
		require.Error(t, err)
	})
}

func TestBitAt(t *testing.T) {
	// LSB-first: byte 0 is 0b0000_0101, so bits 0 and 2 are set.
	bits := []byte{0b0000_0101, 0b1000_0000}

	for idx, expected := range map[int]bool{
		0:  true,
		1:  false,
		2:  true,
		3:  false,
		15: true,
		14: false,
	} {
		set, err := bitstring.BitAt(bits, idx)
		require.NoError(t, err)
		require.Equal(t, expected, set, "bit %d", idx)
	}

	t.Run("out of range", func(t *testing.T) {
		_, err := bitstring.BitAt(bits, 16)
		require.Error(t, err)

		_, err = bitstring.BitAt(bits, -1)
		require.Error(t, err)
	})
}
