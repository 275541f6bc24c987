// hypogen generates a self-contained Go test program from a .hypo specification: mocks
// that record their calls, fixtures with setup and teardown, and a driver that runs
// every test and reports PASS or FAIL.
//
// Usage: hypogen [flags] <spec.hypo>. Run with --help for the flags. The exit status
// tells the failure class: 1 usage or I/O, 2 syntax, 3 validation, 4 expansion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/toejough/hypocrite/hypogen/run"
)

// main is the entry point of the hypogen tool.
func main() {
	if os.Args == nil {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := run.Run(ctx, os.Args, &realFileSystem{}, os.Stdout, os.Stderr)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(run.ExitCode(err))
	}
}

// realFileSystem implements FileSystem using os package.
type realFileSystem struct{}

// Glob returns the names of all files matching pattern.
func (fs *realFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob failed for pattern %s: %w", pattern, err)
	}

	return matches, nil
}

// ReadFile reads the file named by name and returns the contents.
func (fs *realFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return data, nil
}

// WriteFile writes data to the file named by name, creating its directory if needed.
func (fs *realFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	err := os.WriteFile(name, data, perm)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}

	return nil
}
