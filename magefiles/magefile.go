//go:build mage

// Package main contains Mage build targets for get-papers-list developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir    = "bin"
	binName   = "get-papers-list"
	cmdPkg    = "./cmd/get-papers-list"
	secretDir = ".secrets"
)

// exampleConfig is written by Init when no config file exists.
const exampleConfig = `# get-papers-list configuration. Every key can also be set through the
# environment, e.g. GET_PAPERS_NCBI_EMAIL.
ncbi:
  email: ""
  request_delay: 0s
http:
  timeout: 10s
  max_attempts: 3
cache:
  ttl: 24h
store:
  path: ""
log:
  level: info
`

// Init creates the .secrets/ directory and an example config file.
func Init() error {
	if err := os.MkdirAll(secretDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", secretDir, err)
	}
	fmt.Println("  ", secretDir, "(put ncbi-api-key and ncbi-email here)")

	const cfg = "get-papers-list.yaml"
	if _, err := os.Stat(cfg); os.IsNotExist(err) {
		if err := os.WriteFile(cfg, []byte(exampleConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfg, err)
		}
		fmt.Println("  ", cfg)
	}
	fmt.Println("Project initialized.")
	return nil
}

// Build compiles the CLI binary into bin/, stamping the git version.
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

// Test runs the unit tests. The sqlite driver needs cgo.
func Test() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Vet and Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// CleanCache empties the record cache through the CLI.
func CleanCache() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "cache", "clear")
}

func gitVersion() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(v) == "" {
		return "dev"
	}
	return strings.TrimSpace(v)
}

// Stats prints non-blank Go lines (production and test) and the word count
// of the Markdown and YAML docs. Directories starting with "_" or "." are
// skipped.
func Stats() error {
	var st projectStats
	if err := filepath.WalkDir(".", st.visit); err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", st.prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", st.testLines)
	fmt.Printf("Words (documentation):           %d\n", st.docWords)
	return nil
}

type projectStats struct {
	prodLines, testLines, docWords int
}

func (st *projectStats) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if d.IsDir() {
		if path != "." && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return nil
	}

	switch ext := filepath.Ext(path); {
	case ext == ".go":
		n, err := countFile(path, bufio.ScanLines)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, "_test.go") {
			st.testLines += n
		} else {
			st.prodLines += n
		}
	case ext == ".md", ext == ".yaml", ext == ".yml":
		n, err := countFile(path, bufio.ScanWords)
		if err != nil {
			return err
		}
		st.docWords += n
	}
	return nil
}

// countFile counts the non-blank tokens split produces from the file at path.
func countFile(path string, split bufio.SplitFunc) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(split)
	n := 0
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return n, nil
}
