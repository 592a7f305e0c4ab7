// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for neotoma-env.
// Implements the dataset identifier and run configuration used by the
// collector, the index builder, and the CLI.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DatasetID identifies a Neotoma dataset. The API returns integers, but index
// files written by other tools may hold numeric strings, so the value keeps
// its original JSON shape and round trips unchanged.
type DatasetID struct {
	// raw is the number literal, or the string value when quoted is set.
	raw    string
	quoted bool
}

// IntID returns the identifier for an integer dataset id.
func IntID(n int64) DatasetID {
	return DatasetID{raw: strconv.FormatInt(n, 10)}
}

// StringID returns an identifier that serializes as a JSON string.
func StringID(s string) DatasetID {
	return DatasetID{raw: s, quoted: true}
}

// NumberID returns an identifier for a raw JSON number literal such as "42".
func NumberID(literal string) DatasetID {
	return DatasetID{raw: literal}
}

// OpaqueID keeps a JSON value that is not a valid identifier, such as null
// or an object, so it is written back exactly as it was read. It never
// matches a real dataset.
func OpaqueID(raw []byte) DatasetID {
	return DatasetID{raw: strings.TrimSpace(string(raw))}
}

// String returns the identifier as it appears in URLs and reports.
func (d DatasetID) String() string { return d.raw }

// IsZero reports whether d holds no identifier.
func (d DatasetID) IsZero() bool { return d.raw == "" && !d.quoted }

// Quoted reports whether the identifier serializes as a JSON string.
func (d DatasetID) Quoted() bool { return d.quoted }

// Int returns the integer value of the identifier when it has one. Integral
// number literals such as "7.0" count as integers; strings must parse as a
// base-10 integer after trimming.
func (d DatasetID) Int() (int64, bool) {
	s := strings.TrimSpace(d.raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if d.quoted {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// Key returns the identity used for deduplication. Identifiers with an
// integer value share the key of that integer, so 5 and "5" are the same
// dataset. Anything else is kept as-is.
func (d DatasetID) Key() string {
	if n, ok := d.Int(); ok {
		return strconv.FormatInt(n, 10)
	}
	return d.raw
}

// Equal reports whether a and b refer to the same dataset.
func (d DatasetID) Equal(other DatasetID) bool {
	return d.Key() == other.Key()
}

// MarshalJSON writes the identifier in its original shape.
func (d DatasetID) MarshalJSON() ([]byte, error) {
	if d.quoted {
		return json.Marshal(d.raw)
	}
	if d.raw == "" {
		return []byte("null"), nil
	}
	return []byte(d.raw), nil
}

// UnmarshalJSON accepts a JSON number or string.
func (d *DatasetID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return fmt.Errorf("empty dataset id")
	}
	switch {
	case s[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("parsing dataset id: %w", err)
		}
		*d = StringID(v)
	case s[0] == '-' || (s[0] >= '0' && s[0] <= '9'):
		*d = NumberID(s)
	default:
		return fmt.Errorf("dataset id must be a number or string, got %s", s)
	}
	return nil
}

// MarshalYAML writes integers as YAML ints and strings as YAML strings.
func (d DatasetID) MarshalYAML() (any, error) {
	if d.quoted {
		return d.raw, nil
	}
	if n, err := strconv.ParseInt(d.raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(d.raw, 64); err == nil {
		return f, nil
	}
	return d.raw, nil
}

// UnmarshalYAML reads a scalar node, keeping string ids quoted.
func (d *DatasetID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("dataset id must be a scalar, line %d", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		*d = NumberID(node.Value)
	default:
		*d = StringID(node.Value)
	}
	return nil
}
