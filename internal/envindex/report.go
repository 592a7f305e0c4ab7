// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envindex

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// PrintSummary writes one "environment: count" line per bucket, sorted by name.
func PrintSummary(w io.Writer, idx Index) {
	fmt.Fprintln(w, "\nEnvironment counts:")
	if len(idx) == 0 {
		fmt.Fprintln(w, "(empty index)")
		return
	}
	width := 0
	for env := range idx {
		if len(env) > width {
			width = len(env)
		}
	}
	for _, env := range idx.Environments() {
		fmt.Fprintf(w, "%-*s  %d\n", width+1, env+":", len(idx[env]))
	}
	fmt.Fprintln(w, strings.Repeat("-", width+8))
	fmt.Fprintf(w, "%d environments, %d distinct datasets\n", len(idx), idx.CountDistinct())
}

// Progress describes how much of the remote catalogue the saved index covers.
type Progress struct {
	Saved    int
	Total    int
	HasTotal bool
}

// Recount reads the index back from path and counts its distinct ids.
func Recount(path string, log zerolog.Logger) (int, error) {
	idx, err := Load(path, log)
	if err != nil {
		return 0, err
	}
	return idx.CountDistinct(), nil
}

// PrintProgress writes the saved-versus-total progress line.
func PrintProgress(w io.Writer, p Progress) {
	if !p.HasTotal {
		fmt.Fprintf(w, "\nProgress: %d datasets saved (couldn't fetch total)\n", p.Saved)
		return
	}
	pct := 0.0
	if p.Total > 0 {
		pct = 100 * float64(p.Saved) / float64(p.Total)
	}
	fmt.Fprintf(w, "\nProgress: %d of %d datasets saved (%.1f%%)\n", p.Saved, p.Total, pct)
}
