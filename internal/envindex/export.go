// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package envindex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"go.yaml.in/yaml/v3"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatParquet:
		return f, nil
	case "":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use yaml, json, or parquet", s)
	}
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	return "." + string(f)
}

// Row is one (environment, dataset) pair in a tabular export.
type Row struct {
	Environment string `parquet:"environment,dict" json:"environment"`
	DatasetID   string `parquet:"dataset_id" json:"dataset_id"`
	// Numeric is set when the id serialized as a JSON number.
	Numeric bool `parquet:"numeric" json:"numeric"`
}

// Rows flattens idx into rows ordered by environment, then bucket order.
func Rows(idx Index) []Row {
	var rows []Row
	for _, env := range idx.Environments() {
		for _, id := range idx[env] {
			rows = append(rows, Row{Environment: env, DatasetID: id.String(), Numeric: !id.Quoted()})
		}
	}
	return rows
}

// Export writes idx to w in the given format.
func Export(w io.Writer, idx Index, format Format) error {
	switch format {
	case FormatJSON:
		data, err := marshalIndent(idx)
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(idx); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatParquet:
		pw := parquet.NewGenericWriter[Row](w)
		if _, err := pw.Write(Rows(idx)); err != nil {
			return fmt.Errorf("writing parquet rows: %w", err)
		}
		return pw.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ExportFile writes idx to path. When compress is set the output is wrapped
// in a zstd stream and ".zst" is appended to path. It returns the path written.
func ExportFile(path string, idx Index, format Format, compress bool) (string, error) {
	if compress {
		path += ".zst"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}

	var w io.Writer = f
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return "", fmt.Errorf("creating zstd encoder: %w", err)
		}
		w = enc
	}

	if err := Export(w, idx, format); err != nil {
		if enc != nil {
			enc.Close()
		}
		f.Close()
		return "", err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("flushing zstd stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}
	return path, nil
}
