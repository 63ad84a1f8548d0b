/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claim

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"
)

// Canonicalize serializes a JSON-like value into its canonical byte form:
// object keys in lexicographic order, no insignificant whitespace, array
// order preserved. Structurally equal values always canonicalize to the same
// bytes regardless of map iteration or field insertion order.
func Canonicalize(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch cv := v.(type) {
	case map[string]interface{}:
		return writeCanonicalObject(buf, cv)
	case []interface{}:
		return writeCanonicalArray(buf, cv)
	case json.RawMessage:
		var decoded interface{}

		if err := json.Unmarshal(cv, &decoded); err != nil {
			return fmt.Errorf("canonicalize raw message: %w", err)
		}

		return writeCanonical(buf, decoded)
	default:
		// Scalars, and typed values that marshal to scalars.
		b, err := json.Marshal(cv)
		if err != nil {
			return fmt.Errorf("canonicalize value: %w", err)
		}

		buf.Write(b)

		return nil
	}
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]interface{}) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}

		buf.Write(kb)
		buf.WriteByte(':')

		if err := writeCanonical(buf, obj[k]); err != nil {
			return err
		}
	}

	buf.WriteByte('}')

	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, arr []interface{}) error {
	buf.WriteByte('[')

	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := writeCanonical(buf, item); err != nil {
			return err
		}
	}

	buf.WriteByte(']')

	return nil
}
