// Package main contains Mage build targets for neotoma-env developer tooling.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/sh"
)

// sampleConfig is written by Init when no config file exists.
const sampleConfig = `# neotoma-env configuration. Environment variables NEOTOMA_ENV_<SECTION>_<KEY>
# and command-line flags override these values.
http:
  base_url: https://api.neotomadb.org/v2.0
  timeout: 60s
collect:
  batch_size: 500
  max_records: 100000
  limit: 10000
  page_delay: 250ms
  skip_indexed: false
build:
  detail_delay: 250ms
index:
  path: depositional_env_index.json
history:
  path: neotoma-env.db
log_level: info
`

// Init writes a starter neotoma-env.yaml and creates the .secrets/ directory.
func Init() error {
	if err := os.MkdirAll(".secrets", 0o700); err != nil {
		return fmt.Errorf("creating .secrets: %w", err)
	}
	fmt.Println("   .secrets/ (put your address in .secrets/contact-email)")

	const cfgFile = "neotoma-env.yaml"
	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Println("  ", cfgFile, "already exists, leaving it alone")
		return nil
	}
	if err := os.WriteFile(cfgFile, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfgFile, err)
	}
	fmt.Println("  ", cfgFile)
	return nil
}

const (
	binDir  = "bin"
	binName = "neotoma-env"
	cmdPkg  = "./cmd/neotoma-env"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X main.version=" + gitVersion()
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// gitVersion describes HEAD, or "dev" outside a git checkout.
func gitVersion() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || v == "" {
		return "dev"
	}
	return v
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// sourceRoots are the trees Stats reports on.
var sourceRoots = []string{"cmd", "internal", "pkg"}

// Stats prints non-blank Go lines per package, split into production and test code.
func Stats() error {
	type counts struct{ prod, test int }
	byPkg := map[string]*counts{}
	var pkgs []string

	for _, root := range sourceRoots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".go" {
				return nil
			}
			n, err := nonBlankLines(path)
			if err != nil {
				return err
			}
			pkg := filepath.Dir(path)
			c, ok := byPkg[pkg]
			if !ok {
				c = &counts{}
				byPkg[pkg] = c
				pkgs = append(pkgs, pkg)
			}
			if strings.HasSuffix(path, "_test.go") {
				c.test += n
			} else {
				c.prod += n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	sort.Strings(pkgs)
	var total counts
	fmt.Printf("%-24s %8s %8s\n", "PACKAGE", "PROD", "TEST")
	for _, pkg := range pkgs {
		c := byPkg[pkg]
		fmt.Printf("%-24s %8d %8d\n", pkg, c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-24s %8d %8d\n", "total", total.prod, total.test)
	return nil
}

func nonBlankLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}
