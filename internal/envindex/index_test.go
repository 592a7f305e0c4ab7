// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/neotoma-env/pkg/types"
)

func ids(ns ...int64) []types.DatasetID {
	out := make([]types.DatasetID, len(ns))
	for i, n := range ns {
		out[i] = types.IntID(n)
	}
	return out
}

func TestNormalizeEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		present bool
		want    string
		wantOK  bool
	}{
		{"trim and lowercase", "  Lacustrine ", true, "lacustrine", true},
		{"already normalized", "fluvial", true, "fluvial", true},
		{"missing", "", false, "unknown", true},
		{"empty string", "", true, "unknown", true},
		{"blank after trim", "   ", true, "", false},
		{"inner spaces kept", " Glacial Lake ", true, "glacial lake", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeEnvironment(tt.raw, tt.present)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMerge_NoDuplicateInBucket(t *testing.T) {
	idx := Index{"fluvial": ids(5)}
	added := idx.Merge(Index{"fluvial": ids(5, 6)})

	assert.Equal(t, Index{"fluvial": ids(5, 6)}, idx)
	assert.Equal(t, 1, added)
}

func TestMerge_NewBucketAndIntraSourceDuplicates(t *testing.T) {
	idx := Index{"fluvial": ids(1)}
	added := idx.Merge(Index{"lacustrine": ids(2, 3, 2)})

	assert.Equal(t, Index{"fluvial": ids(1), "lacustrine": ids(2, 3)}, idx)
	assert.Equal(t, 2, added)
}

func TestMerge_NumericStringMatchesInteger(t *testing.T) {
	idx := Index{"peat": {types.StringID("7")}}
	idx.Merge(Index{"peat": ids(7, 8)})

	assert.Equal(t, Index{"peat": {types.StringID("7"), types.IntID(8)}}, idx)
}

func TestMerge_OnlyChecksTargetBucket(t *testing.T) {
	idx := Index{"fluvial": ids(1)}
	idx.Merge(Index{"lacustrine": ids(1)})

	assert.Equal(t, Index{"fluvial": ids(1), "lacustrine": ids(1)}, idx)
}

func TestCountDistinct(t *testing.T) {
	idx := Index{
		"fluvial":    {types.IntID(1), types.IntID(2)},
		"lacustrine": {types.StringID("2"), types.StringID("abc"), types.IntID(3)},
		"unknown":    {types.StringID("abc")},
	}
	// 1, 2 (also "2"), abc, 3.
	assert.Equal(t, 4, idx.CountDistinct())
}

func TestClone_Independent(t *testing.T) {
	idx := Index{"fluvial": ids(1)}
	c := idx.Clone()
	c["fluvial"] = append(c["fluvial"], types.IntID(2))
	c["peat"] = ids(3)

	assert.Equal(t, Index{"fluvial": ids(1)}, idx)
}

func TestLoad_MissingFile(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "nope.json"), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, idx)
	assert.NotNil(t, idx)
}

func TestLoad_MalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"fluvial": [1, 2`},
		{"not an object", `[1, 2, 3]`},
		{"wrong value type", `{"fluvial": "1"}`},
		{"empty file", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			idx, err := Load(path, zerolog.Nop())
			require.NoError(t, err)
			assert.Empty(t, idx)
		})
	}
}

func TestLoad_NullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))

	idx, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, idx)
	assert.Empty(t, idx)
}

func TestLoad_MixedIDShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fluvial": [5, "6"], "unknown": []}`), 0o644))

	idx, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []types.DatasetID{types.IntID(5), types.StringID("6")}, idx["fluvial"])
	assert.Empty(t, idx["unknown"])
}

func TestLoad_NullIDKeepsIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lacustrine":[1,2,3],"fluvial":[4,null]}`), 0o644))

	idx, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx, 2)
	assert.Equal(t, ids(1, 2, 3), idx["lacustrine"])
	require.Len(t, idx["fluvial"], 2)
	assert.True(t, idx["fluvial"][0].Equal(types.IntID(4)))
	assert.Equal(t, "null", idx["fluvial"][1].String())
	assert.False(t, idx.Seen().Has(types.IntID(0)))

	idx.Merge(Index{"lacustrine": ids(9)})
	require.NoError(t, Save(path, idx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fluvial":[4,null],"lacustrine":[1,2,3,9]}`, string(data))
}

func TestLoad_NonScalarIDsKeptAsIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"marine":[true,{"id":7},[8],"x"]}`), 0o644))

	idx, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, idx["marine"], 4)
	assert.Equal(t, types.StringID("x"), idx["marine"][3])

	require.NoError(t, Save(path, idx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"marine":[true,{"id":7},[8],"x"]}`, string(data))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index.json")
	idx := Index{
		"fluvial":    {types.IntID(5), types.IntID(6)},
		"lacustrine": {types.StringID("12"), types.IntID(3)},
		"unknown":    {types.StringID("legacy-x")},
	}

	require.NoError(t, Save(path, idx))
	got, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	// Saving what was loaded reproduces the same bytes.
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, Save(path, got))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestSave_PrettyAndSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, Save(path, Index{"peat": ids(2), "fluvial": ids(1)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n  \"fluvial\": [\n    1\n  ],\n  \"peat\": [\n    2\n  ]\n}\n"
	assert.Equal(t, want, string(data))
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, Save(path, Index{"peat": ids(1, 2, 3)}))
	require.NoError(t, Save(path, Index{"fluvial": ids(9)}))

	got, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Index{"fluvial": ids(9)}, got)
}

func TestSave_NilIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, Save(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
