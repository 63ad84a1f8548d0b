/*
Copyright Veridex Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	jsonutil "github.com/veridex/trust-go/util/json"
)

const (
	fldIssuer     = "issuer"
	fldType       = "type"
	fldSubject    = "credentialSubject"
	fldExpiration = "expirationDate"
	fldStatus     = "credentialStatus"
	fldProof      = "proof"
)

// baseSchema is the structural contract of the claim wire format. Validation
// runs before any I/O: a malformed claim never reaches a resolver or backend.
const baseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["issuer", "type", "credentialSubject", "proof"],
  "properties": {
    "issuer": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {
          "type": "object",
          "required": ["id"],
          "properties": {"id": {"type": "string", "minLength": 1}}
        }
      ]
    },
    "type": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}, "minItems": 1}
      ]
    },
    "credentialSubject": {"type": "object"},
    "expirationDate": {"type": "string", "format": "date-time"},
    "credentialStatus": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"type": "string", "minLength": 1}
      }
    },
    "proof": {
      "type": "object",
      "required": ["type", "verificationMethod", "proofValue"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "verificationMethod": {"type": "string", "minLength": 1},
        "created": {"type": "string"},
        "proofValue": {"type": "string", "minLength": 1}
      }
    }
  }
}`

//nolint:gochecknoglobals
var (
	compiledSchema     *gojsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

func claimSchema() (*gojsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		compiledSchema, compileSchemaError = gojsonschema.NewSchema(gojsonschema.NewStringLoader(baseSchema))
	})

	return compiledSchema, compileSchemaError
}

type parseOptions struct {
	disableSchemaValidation bool
}

// ParseOpt configures claim parsing.
type ParseOpt func(*parseOptions)

// WithDisabledSchemaValidation skips the structural schema check. Intended
// for callers that already validated the document upstream.
func WithDisabledSchemaValidation() ParseOpt {
	return func(o *parseOptions) {
		o.disableSchemaValidation = true
	}
}

type rawClaim struct {
	Issuer     interface{}            `json:"issuer,omitempty"`
	Type       interface{}            `json:"type,omitempty"`
	Subject    map[string]interface{} `json:"credentialSubject,omitempty"`
	Expiration string                 `json:"expirationDate,omitempty"`
	Status     map[string]interface{} `json:"credentialStatus,omitempty"`
	Proof      map[string]interface{} `json:"proof,omitempty"`
}

// Parse builds a Claim from its JSON wire form.
func Parse(data []byte, opts ...ParseOpt) (*Claim, error) {
	options := &parseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if !options.disableSchemaValidation {
		if err := validateSchema(data); err != nil {
			return nil, err
		}
	}

	raw := &rawClaim{}
	customFields := map[string]interface{}{}

	if err := jsonutil.UnmarshalWithCustomFields(data, raw, customFields); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}

	c := &Claim{
		Subject:      raw.Subject,
		CustomFields: customFields,
	}

	// Issuer appears either as a plain string or as an object with an id.
	if issuerID := gjson.GetBytes(data, "issuer.id"); issuerID.Exists() {
		c.Issuer = issuerID.String()
	} else {
		c.Issuer = gjson.GetBytes(data, "issuer").String()
	}

	if c.Issuer == "" {
		return nil, errors.New("claim issuer is empty")
	}

	types, err := decodeTypes(raw.Type)
	if err != nil {
		return nil, err
	}

	c.Types = types

	if raw.Expiration != "" {
		expiration, err := time.Parse(time.RFC3339, raw.Expiration)
		if err != nil {
			return nil, fmt.Errorf("parse claim expiration: %w", err)
		}

		c.Expiration = &expiration
	}

	if raw.Status != nil {
		c.Status, err = decodeStatus(raw.Status)
		if err != nil {
			return nil, err
		}
	}

	if raw.Proof != nil {
		c.Proof, err = decodeProof(raw.Proof)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func validateSchema(data []byte) error {
	schema, err := claimSchema()
	if err != nil {
		return fmt.Errorf("compile claim schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate claim: %w", err)
	}

	if !result.Valid() {
		errMsg := "claim is not valid:"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf(" %s.", desc)
		}

		return errors.New(errMsg)
	}

	return nil
}

func decodeTypes(raw interface{}) ([]string, error) {
	switch rt := raw.(type) {
	case string:
		return []string{rt}, nil
	case []interface{}:
		types := make([]string, 0, len(rt))

		for _, t := range rt {
			s, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("claim type entry %v is not a string", t)
			}

			types = append(types, s)
		}

		return types, nil
	default:
		return nil, errors.New("claim type must be a string or an array of strings")
	}
}

func decodeStatus(raw map[string]interface{}) (*Status, error) {
	var statusFields struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}

	unused, err := decodeKnownFields(raw, &statusFields)
	if err != nil {
		return nil, fmt.Errorf("decode claim status: %w", err)
	}

	return &Status{
		ID:           statusFields.ID,
		Type:         statusFields.Type,
		CustomFields: unused,
	}, nil
}

func decodeProof(raw map[string]interface{}) (*Proof, error) {
	var proofFields struct {
		Type               string `json:"type"`
		VerificationMethod string `json:"verificationMethod"`
		Created            string `json:"created"`
		ProofValue         string `json:"proofValue"`
	}

	unused, err := decodeKnownFields(raw, &proofFields)
	if err != nil {
		return nil, fmt.Errorf("decode claim proof: %w", err)
	}

	p := &Proof{
		Type:               proofFields.Type,
		VerificationMethod: proofFields.VerificationMethod,
		ProofValue:         proofFields.ProofValue,
		CustomFields:       unused,
	}

	if proofFields.Created != "" {
		created, err := time.Parse(time.RFC3339, proofFields.Created)
		if err != nil {
			return nil, fmt.Errorf("parse proof created: %w", err)
		}

		p.Created = &created
	}

	return p, nil
}

// decodeKnownFields decodes the statically known fields of a JSON object into
// out and returns the remaining fields as a custom-fields map.
func decodeKnownFields(raw map[string]interface{}, out interface{}) (map[string]interface{}, error) {
	md := &mapstructure.Metadata{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: md,
		Result:   out,
		TagName:  "json",
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}

	unused := map[string]interface{}{}
	for _, k := range md.Unused {
		unused[k] = raw[k]
	}

	return unused, nil
}
