// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/neotoma-env/internal/envindex"
	"github.com/pdiddy/neotoma-env/internal/history"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

// fakeNeotoma serves one listing page of ids 1, 2, 3 and detail records
// from envs. Ids missing from envs answer 404. onDetail, if set, runs
// before each detail response.
func fakeNeotoma(t *testing.T, envs map[string]string, onDetail func()) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/datasets", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("offset") {
		case "":
			fmt.Fprint(w, `{"status":"success","total":10,"data":[]}`)
		case "0":
			fmt.Fprint(w, `{"data":[
				{"site":{"datasets":[{"datasetid":1},{"datasetid":2}]}},
				{"site":{"datasets":[{"datasetid":3}]}}
			]}`)
		default:
			fmt.Fprint(w, `{"data":[]}`)
		}
	})
	mux.HandleFunc("/data/datasets/", func(w http.ResponseWriter, r *http.Request) {
		if onDetail != nil {
			onDetail()
		}
		id := strings.TrimPrefix(r.URL.Path, "/data/datasets/")
		env, ok := envs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		value := "null"
		if env != "" {
			value = fmt.Sprintf("%q", env)
		}
		fmt.Fprintf(w, `{"data":[{"site":{"collectionunit":{"depositionalenvironment":%s}}}]}`, value)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) types.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := types.Defaults()
	cfg.HTTP.BaseURL = baseURL
	cfg.HTTP.Timeout = 0
	cfg.Collect.BatchSize = 3
	cfg.Collect.PageDelay = 0
	cfg.Build.DetailDelay = 0
	cfg.Index.Path = filepath.Join(dir, "index.json")
	cfg.History.Path = filepath.Join(dir, "history.db")
	return cfg
}

// asStrings flattens idx for comparison.
func asStrings(idx envindex.Index) map[string][]string {
	out := make(map[string][]string, len(idx))
	for env, ids := range idx {
		for _, id := range ids {
			out[env] = append(out[env], id.String())
		}
	}
	return out
}

func TestRunIndex_MergesIntoExistingIndex(t *testing.T) {
	srv := fakeNeotoma(t, map[string]string{"2": "  Lacustrine ", "3": ""}, nil)
	cfg := testConfig(t, srv.URL)
	require.NoError(t, envindex.Save(cfg.Index.Path, envindex.Index{"fluvial": {types.IntID(1)}}))

	var out bytes.Buffer
	rep, err := runIndex(context.Background(), cfg, &out, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Collected)
	assert.Equal(t, 1, rep.Build.Summary.AlreadyIndexed)
	assert.Equal(t, 2, rep.Build.Summary.Added)
	assert.Equal(t, envindex.Progress{Saved: 3, Total: 10, HasTotal: true}, rep.Progress)

	saved, err := envindex.Load(cfg.Index.Path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"fluvial":    {"1"},
		"lacustrine": {"2"},
		"unknown":    {"3"},
	}, asStrings(saved))

	text := out.String()
	assert.Contains(t, text, "got 3 dataset IDs")
	assert.Contains(t, text, "1/3: 1 already in index, skipping")
	assert.Contains(t, text, "2/3: 2 -> lacustrine")
	assert.Contains(t, text, "3 environments, 3 distinct datasets")
	assert.Contains(t, text, "Progress: 3 of 10 datasets saved (30.0%)")

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)
	assert.Equal(t, history.StatusCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].DistinctIDs)

	fetches, err := store.Fetches(context.Background(), rep.RunID, "added")
	require.NoError(t, err)
	require.Len(t, fetches, 2)
	assert.Equal(t, "lacustrine", fetches[0].Environment)
	assert.Equal(t, "unknown", fetches[1].Environment)
}

func TestRunIndex_FailedDetailIsRecordedNotFatal(t *testing.T) {
	srv := fakeNeotoma(t, map[string]string{"1": "Fluvial", "3": "Fluvial"}, nil)
	cfg := testConfig(t, srv.URL)
	cfg.History.Path = ""

	rep, err := runIndex(context.Background(), cfg, &bytes.Buffer{}, zerolog.Nop())
	require.NoError(t, err)

	assert.Empty(t, rep.RunID)
	assert.Equal(t, 1, rep.Build.Summary.Failed)
	saved, err := envindex.Load(cfg.Index.Path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"fluvial": {"1", "3"}}, asStrings(saved))
}

func TestRunIndex_CancelledRunLeavesIndexUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	envs := map[string]string{"1": "Fluvial", "2": "Lacustrine", "3": "Lacustrine"}
	srv := fakeNeotoma(t, envs, cancel)
	cfg := testConfig(t, srv.URL)

	rep, err := runIndex(ctx, cfg, &bytes.Buffer{}, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(cfg.Index.Path)
	assert.True(t, os.IsNotExist(statErr), "index file should not be written")

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)
	assert.Equal(t, history.StatusAborted, runs[0].Status)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := viper.New()
		setDefaults(v, types.Defaults())
		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, types.Defaults(), cfg)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("NEOTOMA_ENV_COLLECT_LIMIT", "7")
		t.Setenv("NEOTOMA_ENV_BUILD_DETAIL_DELAY", "2s")
		v := viper.New()
		setDefaults(v, types.Defaults())
		v.SetEnvPrefix("NEOTOMA_ENV")
		v.SetEnvKeyReplacer(envKeyReplacer)
		v.AutomaticEnv()

		cfg, err := loadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Collect.Limit)
		assert.Equal(t, "2s", cfg.Build.DetailDelay.String())
	})

	t.Run("rejects non-positive batch size", func(t *testing.T) {
		v := viper.New()
		setDefaults(v, types.Defaults())
		v.Set("collect.batch_size", 0)
		_, err := loadConfig(v)
		assert.ErrorContains(t, err, "batch_size")
	})

	t.Run("rejects empty index path", func(t *testing.T) {
		v := viper.New()
		setDefaults(v, types.Defaults())
		v.Set("index.path", "")
		_, err := loadConfig(v)
		assert.ErrorContains(t, err, "index.path")
	})
}

func TestPrintIDs(t *testing.T) {
	ids := []types.DatasetID{types.IntID(5), types.StringID("abc")}

	var plain bytes.Buffer
	require.NoError(t, printIDs(&plain, ids, false))
	assert.Equal(t, "5\nabc\n", plain.String())

	var js bytes.Buffer
	require.NoError(t, printIDs(&js, ids, true))
	assert.JSONEq(t, `[5, "abc"]`, js.String())

	js.Reset()
	require.NoError(t, printIDs(&js, nil, true))
	assert.JSONEq(t, `[]`, js.String())
}

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, newLogger("debug", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("chatty", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("", &bytes.Buffer{}).GetLevel())
}

func TestPrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "neotoma-env dev\n", buf.String())
}

func TestRunIndex_RecountFailureStillCompletesRun(t *testing.T) {
	srv := fakeNeotoma(t, map[string]string{"1": "Fluvial", "2": "Lacustrine", "3": "Lacustrine"}, nil)
	cfg := testConfig(t, srv.URL)

	orig := recountIndex
	recountIndex = func(string, zerolog.Logger) (int, error) {
		return 0, fmt.Errorf("disk went away")
	}
	t.Cleanup(func() { recountIndex = orig })

	rep, err := runIndex(context.Background(), cfg, &bytes.Buffer{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Saved)

	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Summary.Added)
}

func TestCollectIDs_PrintsPartialListOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			fmt.Fprint(w, `{"data":[{"site":{"datasets":[{"datasetid":1},{"datasetid":2},{"datasetid":3}]}}]}`)
			return
		}
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	err := collectIDs(context.Background(), cfg, &out, &bytes.Buffer{}, false, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorContains(t, err, "collecting dataset ids")
	assert.Equal(t, "1\n2\n3\n", out.String())
}
