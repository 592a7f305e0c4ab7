// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envindex

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/neotoma-env/internal/httputil"
	"github.com/pdiddy/neotoma-env/internal/neotoma"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

// Fetcher returns dataset detail. *neotoma.Client implements it.
type Fetcher interface {
	Dataset(ctx context.Context, id types.DatasetID) (neotoma.Detail, error)
}

// Outcome is what happened to one id during a build.
type Outcome int

const (
	// OutcomeAdded means the id was recorded under an environment.
	OutcomeAdded Outcome = iota
	// OutcomeAlreadyIndexed means the loaded index already held the id.
	OutcomeAlreadyIndexed
	// OutcomeDuplicate means the id was already processed earlier in the run.
	OutcomeDuplicate
	// OutcomeFailed means the request failed or returned a non-200 status.
	OutcomeFailed
	// OutcomeNoData means the response had no "data" or an empty list.
	OutcomeNoData
	// OutcomeError means the response could not be interpreted.
	OutcomeError
	// OutcomeEmptyEnvironment means the environment was blank after trimming.
	OutcomeEmptyEnvironment
)

var outcomeNames = map[Outcome]string{
	OutcomeAdded:            "added",
	OutcomeAlreadyIndexed:   "already-indexed",
	OutcomeDuplicate:        "duplicate",
	OutcomeFailed:           "failed",
	OutcomeNoData:           "no-data",
	OutcomeError:            "error",
	OutcomeEmptyEnvironment: "empty-environment",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ItemResult records the outcome for a single id.
type ItemResult struct {
	ID          types.DatasetID
	Outcome     Outcome
	Environment string
	Err         error
}

// Summary counts outcomes for a build run.
type Summary struct {
	Added            int
	AlreadyIndexed   int
	Duplicate        int
	Failed           int
	NoData           int
	Errors           int
	EmptyEnvironment int
}

// Total returns the number of ids processed.
func (s Summary) Total() int {
	return s.Added + s.AlreadyIndexed + s.Duplicate + s.Failed + s.NoData + s.Errors + s.EmptyEnvironment
}

// Skipped returns the number of ids that were not fetched or not recorded
// for a reason other than a failure.
func (s Summary) Skipped() int {
	return s.AlreadyIndexed + s.Duplicate + s.NoData + s.EmptyEnvironment
}

func (s *Summary) count(o Outcome) {
	switch o {
	case OutcomeAdded:
		s.Added++
	case OutcomeAlreadyIndexed:
		s.AlreadyIndexed++
	case OutcomeDuplicate:
		s.Duplicate++
	case OutcomeFailed:
		s.Failed++
	case OutcomeNoData:
		s.NoData++
	case OutcomeError:
		s.Errors++
	case OutcomeEmptyEnvironment:
		s.EmptyEnvironment++
	}
}

// BuildResult holds the merged index and the per-item record of a build.
type BuildResult struct {
	// Index is the loaded index with the new entries merged in.
	Index Index
	// Fresh holds only the entries recorded during this run.
	Fresh   Index
	Items   []ItemResult
	Summary Summary
	// Merged is the number of ids appended to Index.
	Merged int
}

// Builder fetches dataset detail and buckets ids by environment.
type Builder struct {
	Fetcher Fetcher
	Config  types.BuildConfig
	Log     zerolog.Logger
	Out     io.Writer
}

// Build processes ids in order against the existing index. Ids already in
// any bucket of existing are skipped without a request, as are ids repeated
// within ids. Per-item failures are recorded and do not stop the run. The
// new entries are merged into a copy of existing; existing is not modified.
//
// If ctx is cancelled Build returns ctx.Err() and the partial result, which
// callers should not save.
func (b *Builder) Build(ctx context.Context, ids []types.DatasetID, existing Index) (BuildResult, error) {
	w := b.Out
	if w == nil {
		w = io.Discard
	}
	pacer := httputil.Pacer{Delay: b.Config.DetailDelay}

	fmt.Fprintln(w, "Fetching detailed data and building index...")
	fmt.Fprintf(w, "loaded %d existing depositional environments\n", len(existing))

	result := BuildResult{Fresh: Index{}}
	indexed := existing.Seen()
	processed := make(Set)
	n := len(ids)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := b.processOne(ctx, id, indexed, processed)
		if item.Err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		processed.Add(id)

		result.Items = append(result.Items, item)
		result.Summary.count(item.Outcome)
		b.report(w, i+1, n, item)

		if item.Outcome == OutcomeAdded {
			result.Fresh[item.Environment] = append(result.Fresh[item.Environment], id)
		}
		// Pause only after a detail record was actually read.
		if item.Outcome == OutcomeAdded || item.Outcome == OutcomeEmptyEnvironment {
			if err := pacer.Wait(ctx); err != nil {
				return result, err
			}
		}
	}

	result.Index = existing.Clone()
	result.Merged = result.Index.Merge(result.Fresh)

	s := result.Summary
	fmt.Fprintf(w, "\nBuild summary: %d added, %d skipped, %d failed (total: %d)\n",
		s.Added, s.Skipped(), s.Failed+s.Errors, s.Total())
	return result, nil
}

func (b *Builder) processOne(ctx context.Context, id types.DatasetID, indexed, processed Set) ItemResult {
	item := ItemResult{ID: id}
	if indexed.Has(id) {
		item.Outcome = OutcomeAlreadyIndexed
		return item
	}
	if processed.Has(id) {
		item.Outcome = OutcomeDuplicate
		return item
	}

	detail, err := b.Fetcher.Dataset(ctx, id)
	if err != nil {
		item.Err = err
		switch {
		case errors.Is(err, neotoma.ErrNoData):
			item.Outcome = OutcomeNoData
		case errors.Is(err, neotoma.ErrMalformed):
			item.Outcome = OutcomeError
		default:
			item.Outcome = OutcomeFailed
		}
		b.Log.Warn().Err(err).
			Str("dataset_id", id.String()).
			Str("outcome", item.Outcome.String()).
			Msg("skipping dataset")
		return item
	}

	env, ok := NormalizeEnvironment(detail.Environment, detail.HasEnvironment)
	if !ok {
		item.Outcome = OutcomeEmptyEnvironment
		return item
	}
	item.Outcome = OutcomeAdded
	item.Environment = env
	return item
}

func (b *Builder) report(w io.Writer, pos, n int, item ItemResult) {
	prefix := fmt.Sprintf("%d/%d: %s", pos, n, item.ID)
	switch item.Outcome {
	case OutcomeAdded:
		fmt.Fprintf(w, "%s -> %s\n", prefix, item.Environment)
	case OutcomeAlreadyIndexed:
		fmt.Fprintf(w, "%s already in index, skipping\n", prefix)
	case OutcomeDuplicate:
		fmt.Fprintf(w, "%s duplicate in this run, skipping\n", prefix)
	case OutcomeEmptyEnvironment:
		fmt.Fprintf(w, "%s empty depositional environment string\n", prefix)
	default:
		fmt.Fprintf(w, "%s %s: %v\n", prefix, item.Outcome, item.Err)
	}
}
