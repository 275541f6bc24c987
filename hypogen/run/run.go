// Package run implements the main logic for the hypogen tool in a testable way.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	util "github.com/toejough/hypocrite/hypogen/run/0_util"
	load "github.com/toejough/hypocrite/hypogen/run/2_load"
	model "github.com/toejough/hypocrite/hypogen/run/3_model"
	template "github.com/toejough/hypocrite/hypogen/run/4_template"
	generate "github.com/toejough/hypocrite/hypogen/run/5_generate"
	output "github.com/toejough/hypocrite/hypogen/run/6_output"
)

// Interfaces - Public

// FileSystem interface for mocking.
type FileSystem interface {
	Glob(pattern string) ([]string, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// Exit codes.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitSyntax     = 2
	ExitValidation = 3
	ExitExpansion  = 4
)

// Exported variables.
var (
	ErrUsage = errors.New("usage")
)

// Functions - Public

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case util.IsSyntax(err):
		return ExitSyntax
	case util.IsValidation(err):
		return ExitValidation
	case util.IsExpansion(err):
		return ExitExpansion
	default:
		return ExitUsage
	}
}

// Run executes the hypogen tool logic. It takes command-line arguments, a FileSystem for
// file operations, and writers for progress (stdout) and logs (stderr). On success it
// writes one generated Go file for the specification named on the command line. No file
// is written when any stage fails.
func Run(ctx context.Context, args []string, fileSys FileSystem, stdout, stderr io.Writer) error {
	parsed, err := parseArgs(args, stdout)
	if errors.Is(err, arg.ErrHelp) {
		return nil
	}

	if err != nil {
		return err
	}

	cfg, err := LoadConfig(parsed.Config)
	if err != nil {
		return err
	}

	cfg.apply(parsed)

	if err := cfg.Validate(); err != nil {
		return err
	}

	gen := &generator{
		fileSys: fileSys,
		out:     stdout,
		log:     newLogger(cfg.LogLevel, stderr),
		cfg:     cfg,
		args:    parsed,
	}

	switch {
	case parsed.ListFragments:
		return gen.listFragments()
	case parsed.Spec == "":
		return fmt.Errorf("%w: a specification file is required", ErrUsage)
	case parsed.Watch:
		return gen.watch(ctx, newFSWatcher, stderr)
	default:
		return gen.generate(ctx)
	}
}

// Structs - Private

// cliArgs defines the command-line arguments for the generator.
type cliArgs struct {
	Spec             string   `arg:"positional"            help:"specification file (.hypo) to generate from"`
	Output           string   `arg:"-O,--output"           help:"output file; overrides %target"`
	Library          []string `arg:"-L,--library,separate" help:"fragment library directory or .hypt file (repeatable)"`
	NoDefaultLibrary bool     `arg:"--no-default-library"  help:"do not load the built-in fragment library"`
	Package          string   `arg:"--package"             help:"package for the generated file when the specification names none"`
	Config           string   `arg:"--config"              help:"JSON config file (default hypogen.json when present)"`
	Reorder          bool     `arg:"--reorder"             help:"reorder declarations of the generated file"`
	Debug            bool     `arg:"--debug"               help:"log debug detail to stderr"`
	DumpModel        bool     `arg:"--dump-model"          help:"print the validated model as YAML instead of generating"`
	ListFragments    bool     `arg:"--list-fragments"      help:"print the names of the loaded fragments"`
	Watch            bool     `arg:"--watch"               help:"regenerate whenever the specification or a library changes"`
}

// Description is shown at the top of --help.
func (cliArgs) Description() string {
	return "hypogen generates a self-contained Go test program from a .hypo specification."
}

// generator holds the state of one invocation.
type generator struct {
	fileSys FileSystem
	out     io.Writer
	log     logrus.FieldLogger
	cfg     *Config
	args    cliArgs
}

func (g *generator) library() (*template.Store, error) {
	return load.Library(g.fileSys, load.Options{
		SearchPath:       g.cfg.LibraryPath,
		NoDefaultLibrary: g.cfg.NoDefaultLibrary,
	}, g.log)
}

func (g *generator) listFragments() error {
	store, err := g.library()
	if err != nil {
		return err
	}

	for _, name := range store.Names() {
		f, err := store.Lookup(name)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(g.out, "%s\t%s\n", name, f.Pos())
	}

	return nil
}

// generate runs the whole pipeline once. Every stage completes before anything is
// written.
func (g *generator) generate(ctx context.Context) error {
	store, err := g.library()
	if err != nil {
		return err
	}

	spec, err := g.model(store)
	if err != nil {
		return err
	}

	if g.args.DumpModel {
		enc := yaml.NewEncoder(g.out)
		defer enc.Close()

		if err := enc.Encode(spec); err != nil {
			return fmt.Errorf("failed to dump model: %w", err)
		}

		return nil
	}

	expander := template.NewExpander(store)

	code, err := generate.New(expander, g.log, g.cfg.Parallelism).Emit(ctx, spec)
	if err != nil {
		return err
	}

	return output.WriteGeneratedCode(code, spec.Target, output.Options{Reorder: g.cfg.Reorder}, g.fileSys, g.out, g.log)
}

func (g *generator) model(store *template.Store) (*model.Specification, error) {
	source := g.args.Spec

	data, err := g.fileSys.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification %s: %w", source, err)
	}

	raw, err := model.Parse(source, data)
	if err != nil {
		return nil, err
	}

	if raw.Package == "" {
		raw.Package = g.cfg.Package
	}

	switch {
	case g.args.Output != "":
		raw.Target = g.args.Output
	case raw.Target != "" && !filepath.IsAbs(raw.Target):
		raw.Target = filepath.Join(filepath.Dir(source), raw.Target)
	}

	spec, err := model.Build(raw, store.Sections())
	if err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{
		"spec":   source,
		"target": spec.Target,
		"mocks":  len(spec.Mocks),
		"tests":  len(spec.Tests),
	}).Debug("built specification model")

	return spec, nil
}

// Functions - Private

func newLogger(level string, stderr io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}

	log.SetLevel(parsed)

	return log
}

// parseArgs parses command-line arguments into cliArgs.
func parseArgs(args []string, stdout io.Writer) (cliArgs, error) {
	var parsed cliArgs

	parser, err := arg.NewParser(arg.Config{Program: "hypogen"}, &parsed)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to create argument parser: %w", err)
	}

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	err = parser.Parse(cmdArgs)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(stdout)

		return cliArgs{}, err
	}

	if err != nil {
		return cliArgs{}, fmt.Errorf("%w: failed to parse arguments: %w", ErrUsage, err)
	}

	return parsed, nil
}
