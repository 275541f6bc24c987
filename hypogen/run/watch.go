package run

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// watcher is the part of *fsnotify.Watcher the watch loop uses.
type watcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsWatcher struct {
	w *fsnotify.Watcher
}

func (f fsWatcher) Add(name string) error { return f.w.Add(name) }

func (f fsWatcher) Close() error { return f.w.Close() }

func (f fsWatcher) Errors() <-chan error { return f.w.Errors }

func (f fsWatcher) Events() <-chan fsnotify.Event { return f.w.Events }

func newFSWatcher() (watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	return fsWatcher{w: w}, nil
}

// watch generates once, then again whenever the specification or a .hypt file on the
// library path changes, until ctx is done. Generation failures are reported to stderr
// and do not stop the loop.
func (g *generator) watch(ctx context.Context, newWatcher func() (watcher, error), stderr io.Writer) error {
	w, err := newWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := watchedDirs(g.args.Spec, g.cfg.LibraryPath)
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	relevant := func(name string) bool {
		return filepath.Clean(name) == filepath.Clean(g.args.Spec) || strings.HasSuffix(name, ".hypt")
	}

	regenerate := func() {
		if err := g.generate(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}

	g.log.WithField("dirs", dirs).Info("watching for changes")

	return watchLoop(ctx, w.Events(), w.Errors(), relevant, regenerate, stderr)
}

// watchLoop runs regenerate once and then once per relevant write or create event.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	relevant func(name string) bool,
	regenerate func(),
	stderr io.Writer,
) error {
	regenerate()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write|fsnotify.Create) && relevant(event.Name) {
				regenerate()
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}

			_, _ = fmt.Fprintf(stderr, "Warning: file watcher: %v\n", err)
		}
	}
}

// watchedDirs lists the directories holding the specification and the library path.
func watchedDirs(spec string, libraryPath []string) []string {
	dirs := []string{filepath.Dir(spec)}

	for _, entry := range libraryPath {
		if strings.HasSuffix(entry, ".hypt") {
			entry = filepath.Dir(entry)
		}

		dirs = append(dirs, filepath.Clean(entry))
	}

	slices.Sort(dirs)

	return slices.Compact(dirs)
}
