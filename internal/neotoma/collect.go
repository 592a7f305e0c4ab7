// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package neotoma

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/neotoma-env/internal/httputil"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

// Lister pages through the dataset listing. *Client implements it.
type Lister interface {
	ListDatasets(ctx context.Context, offset, limit int) (Page, error)
}

// Membership reports whether an id is already known.
type Membership interface {
	Has(id types.DatasetID) bool
}

// Collector gathers dataset ids from the listing endpoint.
type Collector struct {
	Lister Lister
	Config types.CollectConfig
	// Known is consulted only when Config.SkipIndexed is set.
	Known Membership
	Log   zerolog.Logger
	Out   io.Writer
}

// Collect pages through the listing and returns dataset ids in page order,
// at most Config.Limit of them. A page that is not JSON, lacks the "data"
// key, or has an empty data list ends collection normally with the ids
// gathered so far. Transport errors are returned together with those ids.
func (c *Collector) Collect(ctx context.Context) ([]types.DatasetID, error) {
	cfg := c.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = types.DefaultBatchSize
	}
	w := c.Out
	if w == nil {
		w = io.Discard
	}
	pacer := httputil.Pacer{Delay: cfg.PageDelay}

	fmt.Fprintln(w, "Fetching dataset IDs with pagination...")

	var ids []types.DatasetID
	seen := make(map[string]struct{})
	skippedKnown := 0

	for offset := 0; offset < cfg.MaxRecords && len(ids) < cfg.Limit; offset += cfg.BatchSize {
		page, err := c.Lister.ListDatasets(ctx, offset, cfg.BatchSize)
		if err != nil {
			return ids, fmt.Errorf("listing at offset %d: %w", offset, err)
		}

		fmt.Fprintf(w, "batch at offset %d\n", offset)

		if page.Status != PageOK {
			fmt.Fprintf(w, "%s, stopping\n", page.Status)
			c.Log.Info().
				Int("offset", offset).
				Int("status_code", page.StatusCode).
				Str("reason", page.Status.String()).
				Msg("listing stopped")
			break
		}

		for _, id := range page.IDs {
			if len(ids) >= cfg.Limit {
				break
			}
			key := id.Key()
			if _, dup := seen[key]; dup {
				c.Log.Debug().Str("dataset_id", id.String()).Msg("duplicate id in listing")
				continue
			}
			seen[key] = struct{}{}
			if cfg.SkipIndexed && c.Known != nil && c.Known.Has(id) {
				skippedKnown++
				continue
			}
			ids = append(ids, id)
		}

		if err := pacer.Wait(ctx); err != nil {
			return ids, err
		}
	}

	if skippedKnown > 0 {
		fmt.Fprintf(w, "skipped %d already indexed IDs\n", skippedKnown)
	}
	fmt.Fprintf(w, "got %d dataset IDs\n", len(ids))
	return ids, nil
}
