//go:build mage

// Package main provides build targets for nvsedit using Mage.
//
// Usage:
//
//	mage build          Compile nvsedit binary to bin/
//	mage test           Run all tests
//	mage cover          Run tests with a coverage profile
//	mage lint           Run golangci-lint
//	mage tools          Check that the ESP-IDF partition tools can be run
//	mage clean          Remove build artifacts
//	mage install        Install nvsedit to GOPATH/bin
//	mage stats          Print Go line counts per package
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "nvsedit"
	binaryDir  = "bin"
	cmdDir     = "./cmd/nvsedit"
	coverFile  = "coverage.out"
)

// Build compiles the nvsedit binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Cover runs all tests with a coverage profile and prints the summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverFile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Tools checks that python can run nvs_tool.py and the partition generator.
// PYTHON, NVS_TOOL and NVS_PARTITION_GEN override the defaults.
func Tools() error {
	python := envOr("PYTHON", "python3")
	if err := sh.Run(python, envOr("NVS_TOOL", "nvs_tool.py"), "--help"); err != nil {
		return fmt.Errorf("nvs_tool.py: %w", err)
	}
	if err := sh.Run(python, "-m", envOr("NVS_PARTITION_GEN", "esp_idf_nvs_partition_gen"), "--help"); err != nil {
		return fmt.Errorf("nvs partition generator: %w", err)
	}
	fmt.Println("ESP-IDF partition tools OK")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	_ = os.Remove(coverFile)
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Stats prints production and test lines of Go per package directory.
func Stats() error {
	type counts struct{ prod, test int }
	perDir := map[string]*counts{}

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", binaryDir, "magefiles", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		c := perDir[filepath.Dir(path)]
		if c == nil {
			c = &counts{}
			perDir[filepath.Dir(path)] = c
		}
		n := bytes.Count(data, []byte("\n"))
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

	var total counts
	for _, dir := range slices.Sorted(maps.Keys(perDir)) {
		c := perDir[dir]
		fmt.Printf("%-24s %6d %6d\n", dir, c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-24s %6d %6d\n", "total", total.prod, total.test)
	return nil
}
