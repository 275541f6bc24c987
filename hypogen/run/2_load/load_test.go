package load_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
	load "github.com/toejough/hypocrite/hypogen/run/2_load"
	template "github.com/toejough/hypocrite/hypogen/run/4_template"
)

func TestDefaultLibrary_PublishesEmitterSections(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store, err := load.DefaultLibrary()
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(store.Sections()).To(ConsistOf(
		"driver", "fixture_decl", "fixture_teardown", "header", "mock_decl", "mock_install", "test_decl",
	))
	g.Expect(store.Names()).To(ContainElements("return_decl", "arg_any", "call_args", "test_args", "teardown_param"))

	teardown, err := store.Lookup("fixture_teardown")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(teardown.Params()).To(Equal([]string{"teardown"}))
	g.Expect(teardown.Pos().File).To(Equal("<default>/fixture.hypt"))

	g.Expect(store.RegisterSource(template.KindDefine, "late", nil, "", util.Position{})).
		To(MatchError(template.ErrStoreSealed))
}

func TestLibrary_SearchPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fileSys := newMemFS(map[string]string{
		"libs/extra.hypt": "%define greeting {\nhello {{ name }}\n%}\n",
		"libs/more.hypt":  "%section mock_decl_void (name) {\n// {{ name }}\n%}\n",
		"single.hypt":     "%define single {\nx\n%}\n",
		"libs/ignored.go": "package x\n",
	})

	store, err := load.Library(fileSys, load.Options{SearchPath: []string{"libs", "single.hypt"}}, quietLog())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(store.Has("greeting")).To(BeTrue())
	g.Expect(store.Has("single")).To(BeTrue())
	g.Expect(store.Has("mock_decl")).To(BeTrue())
	g.Expect(store.Sections()).To(ContainElement("mock_decl_void"))

	got, err := template.NewExpander(store).ExpandName("greeting", template.NewEnv(map[string]any{"name": "you"}))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal("hello you\n"))
}

func TestLibrary_NoDefault(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fileSys := newMemFS(map[string]string{"lib/own.hypt": "%section mock_decl {\nmine\n%}\n"})

	store, err := load.Library(fileSys, load.Options{SearchPath: []string{"lib"}, NoDefaultLibrary: true}, quietLog())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(store.Names()).To(Equal([]string{"mock_decl"}))
}

func TestLibrary_OverridingDefaultFails(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fileSys := newMemFS(map[string]string{"lib/own.hypt": "\n%section mock_decl {\nmine\n%}\n"})

	_, err := load.Library(fileSys, load.Options{SearchPath: []string{"lib"}}, quietLog())
	g.Expect(err).To(MatchError(util.ErrDuplicateFragment))
	g.Expect(err.Error()).To(ContainSubstring("lib/own.hypt:2"))
}

func TestLibrary_ReadFailure(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fileSys := newMemFS(nil)
	fileSys.readErr = errors.New("disk on fire")

	_, err := load.Library(fileSys, load.Options{SearchPath: []string{"x.hypt"}}, quietLog())
	g.Expect(err).To(MatchError(ContainSubstring("disk on fire")))
}

func TestFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{name: "unknown directive", src: "%target \"x\"\n", wantErr: util.ErrSyntax},
		{name: "no body", src: "%define x\n", wantErr: util.ErrSyntax},
		{name: "chained body", src: "%define x {\na\n%} teardown {\nb\n%}\n", wantErr: util.ErrSyntax},
		{name: "missing name", src: "%define {\n%}\n", wantErr: util.ErrSyntax},
		{name: "define with params", src: "%define x (a) {\n%}\n", wantErr: util.ErrSyntax},
		{name: "params without parens", src: "%section x a {\n%}\n", wantErr: util.ErrSyntax},
		{name: "trailing comma", src: "%section x (a,) {\n%}\n", wantErr: util.ErrSyntax},
		{name: "doubled comma", src: "%section x (a,,b) {\n%}\n", wantErr: util.ErrSyntax},
		{name: "bad body", src: "%define x {\n{% for %}\n%}\n", wantErr: util.ErrSyntax},
		{name: "duplicate in one file", src: "%define x {\n%}\n%define x {\n%}\n", wantErr: util.ErrDuplicateFragment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			err := load.File(template.NewStore(), "bad.hypt", []byte(tt.src))
			g.Expect(err).To(MatchError(tt.wantErr))
		})
	}
}

func TestFile_SectionParameters(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := template.NewStore()
	g.Expect(load.File(store, "ok.hypt", []byte("%section s (a, b) {\n{{ a }}{{ b }}\n%}\n"))).To(Succeed())

	f, err := store.Lookup("s")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.Params()).To(Equal([]string{"a", "b"}))
	g.Expect(f.Pos()).To(Equal(util.Position{File: "ok.hypt", Line: 1}))
}

// memFS is an in-memory FileSystem.
type memFS struct {
	files   map[string]string
	readErr error
}

func newMemFS(files map[string]string) *memFS {
	return &memFS{files: files}
}

func (m *memFS) Glob(pattern string) ([]string, error) {
	var matches []string

	for name := range m.files {
		if ok, _ := filepath.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}

	slices.Sort(matches)

	return matches, nil
}

func (m *memFS) ReadFile(name string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}

	data, ok := m.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}

	return []byte(data), nil
}

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}
