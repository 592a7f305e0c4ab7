// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package envindex maintains the mapping from depositional environment to
// Neotoma dataset ids: loading and saving the JSON index file, building new
// entries from dataset detail, merging them in, and reporting on the result.
package envindex

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/pdiddy/neotoma-env/pkg/types"
)

// json is a drop-in replacement for encoding/json. Map keys are sorted on
// output, which keeps the saved index stable between runs.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UnknownEnvironment is the bucket for datasets with no environment recorded.
const UnknownEnvironment = "unknown"

// Index maps a normalized environment name to the dataset ids recorded under
// it, in insertion order.
type Index map[string][]types.DatasetID

// Environments returns the environment names in sorted order.
func (idx Index) Environments() []string {
	envs := make([]string, 0, len(idx))
	for env := range idx {
		envs = append(envs, env)
	}
	sort.Strings(envs)
	return envs
}

// Clone returns a deep copy of idx.
func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	for env, ids := range idx {
		out[env] = append([]types.DatasetID(nil), ids...)
	}
	return out
}

// Seen returns the set of every id in any bucket.
func (idx Index) Seen() Set {
	s := make(Set)
	for _, ids := range idx {
		for _, id := range ids {
			s.Add(id)
		}
	}
	return s
}

// CountDistinct returns the number of distinct ids across all buckets.
func (idx Index) CountDistinct() int {
	return len(idx.Seen())
}

// Merge appends each id in src to the matching bucket of idx unless that
// bucket already holds it. It returns the number of ids appended.
func (idx Index) Merge(src Index) int {
	added := 0
	for _, env := range src.Environments() {
		bucket := idx[env]
		present := make(Set, len(bucket))
		for _, id := range bucket {
			present.Add(id)
		}
		for _, id := range src[env] {
			if present.Has(id) {
				continue
			}
			present.Add(id)
			bucket = append(bucket, id)
			added++
		}
		idx[env] = bucket
	}
	return added
}

// Set is a membership set of dataset ids keyed by DatasetID.Key.
type Set map[string]struct{}

// Add inserts id.
func (s Set) Add(id types.DatasetID) { s[id.Key()] = struct{}{} }

// Has reports whether id is in the set.
func (s Set) Has(id types.DatasetID) bool {
	_, ok := s[id.Key()]
	return ok
}

// NormalizeEnvironment trims and lowercases a raw depositionalenvironment
// value. A missing, null, or empty value maps to UnknownEnvironment. The
// second result is false when the value was present but blank after trimming.
func NormalizeEnvironment(raw string, present bool) (string, bool) {
	if !present || raw == "" {
		return UnknownEnvironment, true
	}
	env := strings.ToLower(strings.TrimSpace(raw))
	return env, env != ""
}

// Load reads the index at path. A missing file yields an empty index; a file
// that is not a JSON object of arrays is logged and also yields an empty
// index. Array elements that are not dataset ids are kept as opaque values
// so a later Save writes them back unchanged. Other read failures are
// returned.
func Load(path string, log zerolog.Logger) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Index{}, nil
		}
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}

	var raw map[string][]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("index file is malformed, starting fresh")
		return Index{}, nil
	}

	idx := make(Index, len(raw))
	for env, items := range raw {
		ids := make([]types.DatasetID, 0, len(items))
		for _, item := range items {
			var id types.DatasetID
			if err := id.UnmarshalJSON(item); err != nil {
				log.Warn().Err(err).
					Str("environment", env).
					Str("value", string(item)).
					Msg("keeping unrecognized dataset id as-is")
				id = types.OpaqueID(item)
			}
			ids = append(ids, id)
		}
		idx[env] = ids
	}
	return idx, nil
}

// Save writes idx to path as indented JSON with sorted keys, replacing any
// existing file.
func Save(path string, idx Index) error {
	if idx == nil {
		idx = Index{}
	}
	data, err := marshalIndent(idx)
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

// marshalIndent encodes v with sorted keys, then lays it out with
// encoding/json's two-space indentation and a trailing newline.
func marshalIndent(v any) ([]byte, error) {
	compact, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stdjson.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
