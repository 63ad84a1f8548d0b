/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package json holds helpers for working with JSON objects that carry fields
// beyond the statically known ones.
package json

import (
	"encoding/json"

	"golang.org/x/exp/slices"
)

// MarshalWithCustomFields marshals value merged with custom fields defined in the map into JSON bytes.
func MarshalWithCustomFields(v interface{}, cf map[string]interface{}) ([]byte, error) {
	vm, err := MergeCustomFields(v, cf)
	if err != nil {
		return nil, err
	}

	return json.Marshal(vm)
}

// UnmarshalWithCustomFields unmarshals JSON into value v and puts all JSON fields which do not belong to value
// into custom fields map cf.
func UnmarshalWithCustomFields(data []byte, v interface{}, cf map[string]interface{}) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		return err
	}

	vData, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var vf map[string]interface{}

	err = json.Unmarshal(vData, &vf)
	if err != nil {
		return err
	}

	var af map[string]interface{}

	err = json.Unmarshal(data, &af)
	if err != nil {
		return err
	}

	// Keep only the entries which do not belong to the value.
	for k, v := range af {
		if _, ok := vf[k]; !ok {
			cf[k] = v
		}
	}

	return nil
}

// MergeCustomFields converts value to the JSON-like map and merges it with custom fields map cf.
func MergeCustomFields(v interface{}, cf map[string]interface{}) (map[string]interface{}, error) {
	kf, err := ToMap(v)
	if err != nil {
		return nil, err
	}

	for k, v := range cf {
		if _, exists := kf[k]; !exists {
			kf[k] = v
		}
	}

	return kf, nil
}

// AddCustomFields supplements a JSON object with fields from cf that it does
// not already carry.
func AddCustomFields(obj map[string]interface{}, cf map[string]interface{}) {
	for k, v := range cf {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
}

// SplitJSONObj splits the given fields of a JSON object into a separate object.
func SplitJSONObj(obj map[string]interface{}, flds ...string) (map[string]interface{}, map[string]interface{}) {
	fldsMap := make(map[string]interface{})
	rest := make(map[string]interface{})

	for k, v := range obj {
		if slices.Contains(flds, k) {
			fldsMap[k] = v
		} else {
			rest[k] = v
		}
	}

	return fldsMap, rest
}

// CopyExcept copies all fields except fields with given names.
func CopyExcept(obj map[string]interface{}, flds ...string) map[string]interface{} {
	newJSON := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		if !slices.Contains(flds, k) {
			newJSON[k] = v
		}
	}

	return newJSON
}

// ToMap converts an object, string or bytes to a JSON object represented by a map.
func ToMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	var m map[string]interface{}

	err = json.Unmarshal(b, &m)
	if err != nil {
		return nil, err
	}

	return m, nil
}
