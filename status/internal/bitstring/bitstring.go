/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstring provides functions for operating on byte slices as if they are 0-indexed arrays of bits,
// packed 8 bits to a byte, LSB-first.
package bitstring

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/multiformats/go-multibase"
)

const (
	bitsPerByte = 8
	one         = 0x1
)

type options struct {
	multiBaseEncoding bool
}

// Opt configures bitstring decoding.
type Opt func(*options)

// WithMultiBaseEncoding sets support of multibase encoding.
func WithMultiBaseEncoding(multiBaseEncoding bool) Opt {
	return func(options *options) {
		options.multiBaseEncoding = multiBaseEncoding
	}
}

// Decode decodes a gzip-compressed bitstring from its base64URL or multibase
// encoded form.
func Decode(src string, opts ...Opt) ([]byte, error) {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	var (
		decodedBits []byte
		err         error
	)

	if options.multiBaseEncoding {
		_, decodedBits, err = multibase.Decode(src)
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	} else {
		decodedBits, err = base64.RawURLEncoding.DecodeString(src)
		if err != nil {
			return nil, err
		}
	}

	zipReader, err := gzip.NewReader(bytes.NewReader(decodedBits))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(zipReader); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// BitAt returns the bit in the idx'th position (zero-indexed) in the given bitstring.
func BitAt(bitString []byte, idx int) (bool, error) {
	nByte := idx / bitsPerByte
	nBit := idx % bitsPerByte

	if idx < 0 || nByte >= len(bitString) {
		return false, errors.New("position is invalid")
	}

	return (bitString[nByte] & (one << nBit)) != 0, nil
}

// Encode gzips a bitstring and encodes it as a raw urlsafe base-64 string.
func Encode(bitString []byte) (string, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(bitString); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}
