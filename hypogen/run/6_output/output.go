// Package output formats generated source and writes it out.
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dave/dst/decorator"
	"github.com/sirupsen/logrus"
	"github.com/toejough/go-reorder"
)

// Writer interface for writing generated code.
type Writer interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// Options controls the post-processing of generated code.
type Options struct {
	Reorder bool // sort declarations with go-reorder
}

// Format parses code as Go and prints it back in canonical layout. Code that does not
// parse is returned unchanged together with the parse error.
func Format(code string) (string, error) {
	file, err := decorator.Parse(code)
	if err != nil {
		return code, fmt.Errorf("generated code does not parse: %w", err)
	}

	var buf bytes.Buffer
	if err := decorator.Fprint(&buf, file); err != nil {
		return code, fmt.Errorf("failed to print generated code: %w", err)
	}

	return buf.String(), nil
}

// Prepare formats code and, when asked, reorders its declarations. Either step may
// fail; a warning goes to out and the code from the last good step is kept.
func Prepare(code, filename string, opts Options, out io.Writer, log logrus.FieldLogger) string {
	formatted, err := Format(code)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Warning: failed to format %s: %v\n", filename, err)
		log.WithError(err).WithField("target", filename).Debug("writing unformatted output")

		return code
	}

	if !opts.Reorder {
		return formatted
	}

	reordered, err := reorder.Source(formatted)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Warning: failed to reorder %s: %v\n", filename, err)

		return formatted
	}

	return reordered
}

// WriteGeneratedCode prepares code and writes it to filename.
func WriteGeneratedCode(
	code, filename string, opts Options, fileWriter Writer, out io.Writer, log logrus.FieldLogger,
) error {
	const generatedFilePermissions = 0o600

	final := Prepare(code, filename, opts, out, log)

	err := fileWriter.WriteFile(filename, []byte(final), generatedFilePermissions)
	if err != nil {
		return fmt.Errorf("error writing %s: %w", filename, err)
	}

	log.WithField("target", filename).WithField("bytes", len(final)).Debug("wrote generated code")

	_, _ = fmt.Fprintf(out, "%s written successfully.\n", filename)

	return nil
}
