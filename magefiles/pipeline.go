package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// bin is the path of the CLI built by Build.
var bin = filepath.Join(binDir, binName)

// Run builds the CLI and runs the full collect, build, save, report pipeline.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(bin, "run")
}

// Collect builds the CLI and lists the dataset ids a run would process.
func Collect() error {
	mg.Deps(Build)
	return sh.RunV(bin, "collect")
}

// Summary prints per-environment counts and progress for the saved index.
func Summary() error {
	mg.Deps(Build)
	return sh.RunV(bin, "summary", "--progress")
}

// Export writes the saved index as Parquet next to the JSON file.
func Export() error {
	mg.Deps(Build)
	return sh.RunV(bin, "export", "--format", "parquet")
}
