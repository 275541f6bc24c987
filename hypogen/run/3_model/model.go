// Package model parses .hypo specification files and builds the validated model the
// emitter walks.
package model

import (
	util "github.com/toejough/hypocrite/hypogen/run/0_util"
)

// Structs - Public

// Argument is one mock argument. Flag is the argument's wildcard bit, 2^position.
type Argument struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
	Flag uint64 `yaml:"flag"`
}

// Fixture is a validated fixture declaration.
type Fixture struct {
	Name        string        `yaml:"name"`
	ReturnType  string        `yaml:"return_type,omitempty"`
	Setup       string        `yaml:"setup"`
	Teardown    string        `yaml:"teardown,omitempty"`
	HasTeardown bool          `yaml:"has_teardown"`
	Section     string        `yaml:"section"`
	Pos         util.Position `yaml:"-"`
}

// FixtureUse is one fixture reference of a test. InjectIndex is the position of the
// fixture's value among the values injected into the test body, or -1.
type FixtureUse struct {
	Fixture     *Fixture `yaml:"-"`
	Name        string   `yaml:"fixture"`
	Inject      bool     `yaml:"inject"`
	InjectIndex int      `yaml:"inject_index"`
}

// Mock is a validated mock declaration.
type Mock struct {
	Name       string        `yaml:"name"`
	ReturnType string        `yaml:"return_type,omitempty"`
	Args       []Argument    `yaml:"args"`
	Section    string        `yaml:"section"`
	Pos        util.Position `yaml:"-"`
}

// Specification is the validated model of one .hypo file. Mocks and Fixtures are
// sorted by name; Tests keep declaration order, which is also execution order.
type Specification struct {
	Source   string     `yaml:"source"`
	Target   string     `yaml:"target"`
	Package  string     `yaml:"package"`
	Preamble string     `yaml:"preamble,omitempty"`
	Mocks    []*Mock    `yaml:"mocks"`
	Fixtures []*Fixture `yaml:"fixtures"`
	Tests    []*Test    `yaml:"tests"`
}

// Test is a validated test declaration.
type Test struct {
	Name     string        `yaml:"name"`
	Fixtures []FixtureUse  `yaml:"fixtures"`
	Body     string        `yaml:"body"`
	Section  string        `yaml:"section"`
	Pos      util.Position `yaml:"-"`
}

// Raw is a parsed but unvalidated specification.
type Raw struct {
	Source    string
	Target    string
	Package   string
	Preambles []string
	Mocks     []RawMock
	Fixtures  []RawFixture
	Tests     []RawTest
}

// RawArg is an argument as written: the type is everything before the name.
type RawArg struct {
	Type string
	Name string
}

// RawFixture is a fixture directive as written.
type RawFixture struct {
	Name        string
	ReturnType  string
	Setup       string
	Teardown    string
	HasTeardown bool
	Pos         util.Position
}

// RawMock is a mock directive as written.
type RawMock struct {
	Name       string
	ReturnType string
	Args       []RawArg
	Pos        util.Position
}

// RawRef is a fixture reference of a test; Inject is false when written as !name.
type RawRef struct {
	Name   string
	Inject bool
}

// RawTest is a test directive as written.
type RawTest struct {
	Name string
	Refs []RawRef
	Body string
	Pos  util.Position
}
