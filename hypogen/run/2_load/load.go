// Package load fills a fragment store from the embedded default library and from
// the .hypt files found on a search path.
package load

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
	lex "github.com/toejough/hypocrite/hypogen/run/1_lex"
	template "github.com/toejough/hypocrite/hypogen/run/4_template"
)

// Interfaces - Public

// FileSystem is the slice of file access the loader needs.
type FileSystem interface {
	Glob(pattern string) ([]string, error)
	ReadFile(name string) ([]byte, error)
}

// Structs - Public

// Options controls which libraries are loaded.
type Options struct {
	SearchPath       []string // directories (or single .hypt files), loaded in order after the default library
	NoDefaultLibrary bool
}

// Functions - Public

// DefaultLibrary returns a sealed store holding only the embedded library.
func DefaultLibrary() (*template.Store, error) {
	store := template.NewStore()

	if err := loadEmbedded(store, logrus.StandardLogger()); err != nil {
		return nil, err
	}

	store.Seal()

	return store, nil
}

// Library builds the sealed store for a generation run.
func Library(fileSys FileSystem, opts Options, log logrus.FieldLogger) (*template.Store, error) {
	store := template.NewStore()

	if !opts.NoDefaultLibrary {
		if err := loadEmbedded(store, log); err != nil {
			return nil, err
		}
	}

	for _, entry := range opts.SearchPath {
		files, err := libraryFiles(fileSys, entry)
		if err != nil {
			return nil, err
		}

		for _, name := range files {
			data, err := fileSys.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("failed to read fragment library %s: %w", name, err)
			}

			if err := File(store, name, data); err != nil {
				return nil, err
			}

			log.WithField("library", name).Debug("loaded fragment library")
		}
	}

	store.Seal()
	log.WithField("fragments", len(store.Names())).Debug("fragment store sealed")

	return store, nil
}

// File registers every define and section directive of one library file.
func File(store *template.Store, source string, data []byte) error {
	directives, err := lex.Read(source, data)
	if err != nil {
		return err
	}

	for _, d := range directives {
		kind, ok := kinds[d.Name]
		if !ok {
			return util.Errorf(d.Pos, util.ErrSyntax, "unknown library directive %%%s", d.Name)
		}

		name, params, err := header(d)
		if err != nil {
			return err
		}

		if len(d.Blocks) != 1 || d.Blocks[0].Label != "" {
			return util.Errorf(d.Pos, util.ErrSyntax, "%%%s %s needs exactly one { } body", d.Name, name)
		}

		if err := store.RegisterSource(kind, name, params, d.Blocks[0].Text(), d.Pos); err != nil {
			return err
		}
	}

	return nil
}

// Functions - Private

// header reads "name" or "name (param, ...)" from a define or section directive.
func header(d lex.Directive) (string, []string, error) {
	toks := d.Tokens
	if len(toks) == 0 || toks[0].Kind != lex.Word {
		return "", nil, util.Errorf(d.Pos, util.ErrSyntax, "%%%s needs a name", d.Name)
	}

	name := toks[0].Text
	rest := toks[1:]

	if len(rest) == 0 {
		return name, nil, nil
	}

	if d.Name != "section" {
		return "", nil, util.Errorf(d.Pos, util.ErrSyntax, "%%%s %s: unexpected %q", d.Name, name, rest[0].Text)
	}

	if rest[0].Text != "(" || rest[len(rest)-1].Text != ")" {
		return "", nil, util.Errorf(d.Pos, util.ErrSyntax, "section %s: parameters must be in parentheses", name)
	}

	var params []string

	expectName := true

	for _, tok := range rest[1 : len(rest)-1] {
		switch {
		case expectName && tok.Kind == lex.Word:
			params = append(params, tok.Text)
			expectName = false
		case !expectName && tok.Text == ",":
			expectName = true
		default:
			return "", nil, util.Errorf(d.Pos, util.ErrSyntax, "section %s: bad parameter list near %q", name, tok.Text)
		}
	}

	if expectName && len(params) > 0 {
		return "", nil, util.Errorf(d.Pos, util.ErrSyntax, "section %s: trailing comma in parameter list", name)
	}

	return name, params, nil
}

func libraryFiles(fileSys FileSystem, entry string) ([]string, error) {
	if strings.HasSuffix(entry, libraryExt) {
		return []string{entry}, nil
	}

	files, err := fileSys.Glob(filepath.Join(entry, "*"+libraryExt))
	if err != nil {
		return nil, fmt.Errorf("failed to search fragment library path %s: %w", entry, err)
	}

	slices.Sort(files)

	return files, nil
}

func loadEmbedded(store *template.Store, log logrus.FieldLogger) error {
	names, err := fs.Glob(defaultLibrary, "library/*"+libraryExt)
	if err != nil {
		return fmt.Errorf("failed to list the default library: %w", err)
	}

	slices.Sort(names)

	for _, name := range names {
		data, err := defaultLibrary.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read the default library: %w", err)
		}

		if err := File(store, "<default>/"+path.Base(name), data); err != nil {
			return err
		}
	}

	log.WithField("files", len(names)).Debug("loaded default fragment library")

	return nil
}

// unexported constants.
const libraryExt = ".hypt"

// unexported variables.
var (
	kinds = map[string]template.Kind{ //nolint:gochecknoglobals // read-only lookup table
		"define":  template.KindDefine,
		"section": template.KindSection,
	}
)

//go:embed library/*.hypt
var defaultLibrary embed.FS
