//go:build targ

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/toejough/go-reorder"
	"github.com/toejough/targ"
	"github.com/toejough/targ/file"
	"github.com/toejough/targ/sh"
)

// Build builds the local hypogen binary.
func Build() error {
	fmt.Println("Building hypogen...")

	if err := os.MkdirAll("bin", 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	return sh.Run("go", "build", "-o", "bin/hypogen", "./hypogen")
}

// Check runs all checks & fixes on the code, in order of correctness.
func Check() error {
	fmt.Println("Checking...")

	return targ.Deps(
		Tidy,
		Generate,
		Test,
		ReorderDecls, // linter will yell about declaration order if not correct
		Lint,
	)
}

// Clean removes build and coverage output.
func Clean() {
	fmt.Println("Cleaning...")

	_ = os.RemoveAll("bin")
	_ = os.Remove("coverage.out")
}

// Generate regenerates every UAT test program from its .hypo specification with the
// locally built hypogen.
func Generate() error {
	fmt.Println("Generating...")

	if err := targ.Deps(Build); err != nil {
		return err
	}

	specs, err := sourceFiles("UAT", ".hypo")
	if err != nil {
		return fmt.Errorf("failed to find specifications: %w", err)
	}

	for _, spec := range specs {
		if err := sh.Run("bin/hypogen", spec); err != nil {
			return fmt.Errorf("failed to generate from %s: %w", spec, err)
		}
	}

	return nil
}

// Lint lints the codebase.
func Lint() error {
	fmt.Println("Linting...")
	return sh.Run("golangci-lint", "run", "-c", "dev/golangci.toml")
}

// LintForFail lints the codebase purely to find out whether anything fails.
func LintForFail() error {
	fmt.Println("Linting to check for overall pass/fail...")

	return sh.Run(
		"golangci-lint", "run",
		"-c", "dev/golangci.toml",
		"--fix=false",
		"--max-issues-per-linter=1",
		"--max-same-issues=1",
		"--allow-parallel-runners",
	)
}

// Mutate runs the mutation tests.
func Mutate() error {
	fmt.Println("Running mutation tests...")

	if err := targ.Deps(TestForFail); err != nil {
		return err
	}

	return sh.Run("go", "test", "-timeout=6000s", "-tags=mutation", "-ooze.v", "./dev/...", "-run=TestMutation")
}

// ReorderDecls reorders declarations in Go files per conventions.
func ReorderDecls() error {
	fmt.Println("Reordering declarations...")

	files, err := reorderable()
	if err != nil {
		return err
	}

	reordered := 0

	for _, name := range files {
		content, want, err := reorderFile(name)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)

			continue
		}

		if content == want {
			continue
		}

		if err := os.WriteFile(name, []byte(want), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}

		fmt.Printf("  Reordered: %s\n", name)
		reordered++
	}

	fmt.Printf("Reordered %d file(s).\n", reordered)

	return nil
}

// ReorderDeclsCheck reports the files whose declarations are out of order, with a diff.
func ReorderDeclsCheck() error {
	fmt.Println("Checking declaration order...")

	files, err := reorderable()
	if err != nil {
		return err
	}

	outOfOrder := 0

	for _, name := range files {
		content, want, err := reorderFile(name)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)

			continue
		}

		if content == want {
			continue
		}

		outOfOrder++

		fmt.Printf("\n%s\n", textdiff.Unified(name+" (current)", name+" (reordered)", content, want))
	}

	if outOfOrder > 0 {
		return fmt.Errorf("%d file(s) need reordering", outOfOrder)
	}

	fmt.Printf("All files are correctly ordered (%d files processed).\n", len(files))

	return nil
}

// Test runs the unit tests with coverage.
func Test() error {
	fmt.Println("Running unit tests...")

	if err := targ.Deps(Generate); err != nil {
		return err
	}

	return sh.Run(
		"go",
		"test",
		"-timeout=2m",
		"-race",
		"-count=1",
		"-coverprofile=coverage.out",
		"-coverpkg=./hypogen/...,./internal/...,.",
		"./...",
	)
}

// TestForFail runs the unit tests purely to find out whether any fail.
func TestForFail() error {
	fmt.Println("Running unit tests for overall pass/fail...")
	return sh.Run("go", "test", "-timeout=30s", "./...", "-failfast")
}

// Tidy tidies up go.mod.
func Tidy() error {
	fmt.Println("Tidying go.mod...")
	return sh.Run("go", "mod", "tidy")
}

// Watch re-runs Check whenever sources, specifications or fragment libraries change.
func Watch(ctx context.Context) error {
	fmt.Println("Watching...")

	patterns := []string{"**/*.go", "**/*.hypo", "**/*.hypt"}

	return file.Watch(ctx, patterns, file.WatchOptions{}, func(changes file.ChangeSet) error {
		if !hasRelevantChanges(changes) {
			return nil
		}

		fmt.Println("Change detected...")

		targ.ResetDeps()

		if err := Check(); err != nil {
			fmt.Println("continuing to watch after check failure (see errors above)")
		} else {
			fmt.Println("continuing to watch after all checks passed!")
		}

		return nil
	})
}

// hasRelevantChanges skips what Check itself writes: generated programs and coverage.
func hasRelevantChanges(changes file.ChangeSet) bool {
	all := slices.Concat(changes.Added, changes.Removed, changes.Modified)

	return slices.ContainsFunc(all, func(name string) bool {
		return !strings.HasSuffix(name, "_hypo.go") && !strings.HasSuffix(name, "coverage.out")
	})
}

func isGeneratedFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 200)

	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return strings.Contains(string(buf[:n]), "DO NOT EDIT"), nil
}

// reorderFile returns a file's content and its reordered form.
func reorderFile(name string) (string, string, error) {
	content, err := os.ReadFile(name)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	reordered, err := reorder.Source(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to reorder %s: %w", name, err)
	}

	return string(content), reordered, nil
}

// reorderable lists the hand-written Go files.
func reorderable() ([]string, error) {
	files, err := sourceFiles(".", ".go")
	if err != nil {
		return nil, fmt.Errorf("failed to find Go files: %w", err)
	}

	var kept []string

	for _, name := range files {
		generated, err := isGeneratedFile(name)
		if err != nil {
			return nil, err
		}

		if !generated {
			kept = append(kept, name)
		}
	}

	return kept, nil
}

// sourceFiles walks dir for files with the extension, skipping hidden, underscore and
// vendor directories.
func sourceFiles(dir, ext string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("unable to walk %s: %w", path, err)
		}

		if d.IsDir() && path != dir {
			base := d.Name()
			if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" {
				return filepath.SkipDir
			}
		}

		if !d.IsDir() && filepath.Ext(path) == ext {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}
