package run

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"
)

func TestWatchLoop_RegeneratesOnRelevantChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := NewWithT(t)

	events := make(chan fsnotify.Event)
	errs := make(chan error)
	stderr := &syncBuffer{}

	var (
		mu    sync.Mutex
		count int
	)

	regenerate := func() {
		mu.Lock()
		defer mu.Unlock()
		count++
	}
	generated := func() int {
		mu.Lock()
		defer mu.Unlock()

		return count
	}

	relevant := func(name string) bool { return name == "alloc.hypo" }

	done := make(chan error, 1)

	go func() { done <- watchLoop(context.Background(), events, errs, relevant, regenerate, stderr) }()

	g.Eventually(generated).Should(Equal(1))

	events <- fsnotify.Event{Name: "alloc.hypo", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "alloc.hypo", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "alloc.hypo", Op: fsnotify.Create}
	errs <- errors.New("queue overflow")

	close(events)

	g.Eventually(done).Should(Receive(BeNil()))
	g.Expect(generated()).To(Equal(3))
	g.Expect(stderr.String()).To(Equal("Warning: file watcher: queue overflow\n"))
}

func TestWatchLoop_StopsWhenCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- watchLoop(ctx, make(chan fsnotify.Event), make(chan error), func(string) bool { return true }, func() {}, io.Discard)
	}()

	cancel()

	g.Eventually(done, time.Second).Should(Receive(BeNil()))
}

func TestGenerator_WatchAddsDirectoriesAndReportsFailures(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := &fakeWatcher{events: make(chan fsnotify.Event), errs: make(chan error)}
	close(fake.events)

	log := logrus.New()
	log.SetOutput(io.Discard)

	gen := &generator{
		fileSys: failingFS{},
		out:     io.Discard,
		log:     log,
		cfg:     &Config{LibraryPath: []string{"lib", "lib/extra.hypt"}, NoDefaultLibrary: true},
		args:    cliArgs{Spec: "specs/alloc.hypo"},
	}
	stderr := &bytes.Buffer{}

	err := gen.watch(context.Background(), func() (watcher, error) { return fake, nil }, stderr)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fake.added).To(Equal([]string{"lib", "specs"}))
	g.Expect(fake.closed).To(BeTrue())
	g.Expect(stderr.String()).To(HavePrefix("Error: failed to read fragment library lib/extra.hypt"))
}

func TestGenerator_WatchFailsWhenDirectoryCannotBeWatched(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := &fakeWatcher{addErr: errors.New("no such directory")}
	gen := &generator{cfg: &Config{}, args: cliArgs{Spec: "alloc.hypo"}}

	err := gen.watch(context.Background(), func() (watcher, error) { return fake, nil }, io.Discard)
	g.Expect(err).To(MatchError(ContainSubstring("failed to watch .")))
	g.Expect(fake.closed).To(BeTrue())
}

func TestWatchedDirs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(watchedDirs("a/b.hypo", []string{"lib/", "a", "x/y.hypt"})).To(Equal([]string{"a", "lib", "x"}))
	g.Expect(watchedDirs("b.hypo", nil)).To(Equal([]string{"."}))
}

type fakeWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	addErr error
	added  []string
	closed bool
}

func (f *fakeWatcher) Add(name string) error {
	if f.addErr != nil {
		return f.addErr
	}

	f.added = append(f.added, name)

	return nil
}

func (f *fakeWatcher) Close() error {
	f.closed = true

	return nil
}

func (f *fakeWatcher) Errors() <-chan error { return f.errs }

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }

type failingFS struct{}

func (failingFS) Glob(string) ([]string, error) { return nil, nil }

func (failingFS) ReadFile(name string) ([]byte, error) {
	return nil, errors.New("open " + name + ": permission denied")
}

func (failingFS) WriteFile(string, []byte, os.FileMode) error { return nil }

// syncBuffer is a bytes.Buffer safe for the watch goroutine and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.String()
}
