package template

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Interfaces - Public

// Fragment is a named unit of template text. Defines and Sections differ in how they
// expand; the store resolves either by name.
type Fragment interface {
	Name() string
	Params() []string
	Pos() util.Position
	Nodes() []Node
	expand(c *call, env *Env) (string, error)
}

// Kind says which Fragment variant a registration creates.
type Kind int

// Fragment kinds.
const (
	KindDefine Kind = iota
	KindSection
)

// Structs - Public

// Define is a reusable macro. It expands in the caller's environment unchanged.
type Define struct {
	name  string
	nodes []Node
	pos   util.Position
}

// NewDefine builds a Define from parsed nodes.
func NewDefine(name string, nodes []Node, pos util.Position) *Define {
	return &Define{name: name, nodes: nodes, pos: pos}
}

func (d *Define) Name() string       { return d.name }
func (d *Define) Nodes() []Node      { return d.nodes }
func (d *Define) Params() []string   { return nil }
func (d *Define) Pos() util.Position { return d.pos }

func (d *Define) expand(c *call, env *Env) (string, error) {
	return c.render(d.nodes, env)
}

// Section is a fragment with declared parameters. It expands only when every
// parameter is bound, in a frame that binds each parameter from the caller's
// environment; otherwise it expands to nothing.
type Section struct {
	name   string
	params []string
	nodes  []Node
	pos    util.Position
}

// NewSection builds a Section from parsed nodes.
func NewSection(name string, params []string, nodes []Node, pos util.Position) *Section {
	return &Section{name: name, params: params, nodes: nodes, pos: pos}
}

func (s *Section) Name() string       { return s.name }
func (s *Section) Nodes() []Node      { return s.nodes }
func (s *Section) Params() []string   { return s.params }
func (s *Section) Pos() util.Position { return s.pos }

func (s *Section) expand(c *call, env *Env) (string, error) {
	bound := make(map[string]any, len(s.params))

	for _, param := range s.params {
		v, ok := env.Lookup(param)
		if !ok {
			return "", nil
		}

		bound[param] = v
	}

	return c.render(s.nodes, env.With(bound))
}

// Store holds every fragment of a generation run, keyed by name. It is written during
// the load phase only; once sealed it is read-only and safe for concurrent lookups.
type Store struct {
	mu        sync.RWMutex
	fragments map[string]Fragment
	sealed    bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{fragments: make(map[string]Fragment)}
}

// Has reports whether name is registered.
func (s *Store) Has(name string) bool {
	_, err := s.Lookup(name)

	return err == nil
}

// Lookup returns the fragment registered under name.
func (s *Store) Lookup(name string) (Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fragments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownFragment, name)
	}

	return f, nil
}

// Names returns every registered name, sorted.
func (s *Store) Names() []string {
	return s.names(func(Fragment) bool { return true })
}

// Register adds a parsed fragment.
func (s *Store) Register(f Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrStoreSealed, f.Name())
	}

	if existing, ok := s.fragments[f.Name()]; ok {
		return util.Errorf(f.Pos(), util.ErrDuplicateFragment, "%s already registered at %s", f.Name(), existing.Pos())
	}

	s.fragments[f.Name()] = f

	return nil
}

// RegisterSource parses body and registers the resulting fragment.
func (s *Store) RegisterSource(kind Kind, name string, params []string, body string, pos util.Position) error {
	if !isName(name) {
		return util.Errorf(pos, util.ErrSyntax, "bad fragment name %q", name)
	}

	for _, param := range params {
		if !isName(param) {
			return util.Errorf(pos, util.ErrSyntax, "bad parameter %q for %s", param, name)
		}
	}

	nodes, err := Parse(body, util.Position{File: pos.File, Line: pos.Line + 1})
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	var f Fragment = NewDefine(name, nodes, pos)
	if kind == KindSection {
		f = NewSection(name, params, nodes, pos)
	} else if len(params) > 0 {
		return util.Errorf(pos, util.ErrSyntax, "define %s cannot declare parameters", name)
	}

	return s.Register(f)
}

// Seal ends the load phase.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = true
}

// Sections returns the names of registered sections, sorted.
func (s *Store) Sections() []string {
	return s.names(func(f Fragment) bool {
		_, ok := f.(*Section)

		return ok
	})
}

func (s *Store) names(keep func(Fragment) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.fragments))

	for name, f := range s.fragments {
		if keep(f) {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names
}

// Exported variables.
var (
	// ErrStoreSealed is returned when registering after the load phase ended.
	ErrStoreSealed = errors.New("fragment store is sealed")
)
