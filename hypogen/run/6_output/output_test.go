package output

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/akedrou/textdiff"
	"github.com/sirupsen/logrus"
)

func TestWriteGeneratedCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		code        string
		opts        Options
		writerErr   error
		want        string
		wantOut     string
		wantWarning bool
		wantErr     bool
	}{
		{
			name:    "formats valid code",
			code:    "package foo\nfunc  b( ) {}\n",
			want:    "package foo\n\nfunc b() {}\n",
			wantOut: "out_hypo.go written successfully.\n",
		},
		{
			name:    "reorders when asked",
			code:    "package foo\n\nfunc b() {}\n\nconst A = 1\n",
			opts:    Options{Reorder: true},
			wantOut: "out_hypo.go written successfully.\n",
		},
		{
			name:        "unparsable code is written as is",
			code:        "package foo\nfunc {\n",
			want:        "package foo\nfunc {\n",
			wantWarning: true,
		},
		{
			name:      "write error returns error",
			code:      "package foo\n",
			writerErr: errors.New("write failed"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			writer := newMockWriter()
			writer.writeErr = tt.writerErr
			out := &bytes.Buffer{}

			err := WriteGeneratedCode(tt.code, "out_hypo.go", tt.opts, writer, out, quietLog())

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}

				if strings.Contains(out.String(), "written successfully") {
					t.Errorf("reported success after a failed write: %q", out.String())
				}

				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			got, ok := writer.writtenFiles["out_hypo.go"]
			if !ok {
				t.Fatalf("expected out_hypo.go to be written, got files: %v", writer.writtenFiles)
			}

			if tt.want != "" {
				if diff := textdiff.Unified("want", "got", tt.want, string(got)); diff != "" {
					t.Errorf("written code mismatch:\n%s", diff)
				}
			}

			if tt.wantOut != "" && out.String() != tt.wantOut {
				t.Errorf("out = %q, want %q", out.String(), tt.wantOut)
			}

			if tt.wantWarning != strings.HasPrefix(out.String(), "Warning: failed to format out_hypo.go") {
				t.Errorf("warning mismatch, out = %q", out.String())
			}

			if writer.perms["out_hypo.go"] != 0o600 {
				t.Errorf("perm = %o, want 600", writer.perms["out_hypo.go"])
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	got, err := Format("package x\nvar  a=1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "package x\n\nvar a = 1\n" {
		t.Errorf("Format() = %q", got)
	}

	bad := "package x\nvar =\n"

	got, err = Format(bad)
	if err == nil {
		t.Error("expected an error for unparsable code")
	}

	if got != bad {
		t.Errorf("Format() changed unparsable code: %q", got)
	}
}

// mockWriter is a test mock for the Writer interface.
type mockWriter struct {
	writtenFiles map[string][]byte
	perms        map[string]os.FileMode
	writeErr     error
}

func (m *mockWriter) WriteFile(name string, data []byte, perm os.FileMode) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	m.writtenFiles[name] = data
	m.perms[name] = perm

	return nil
}

func newMockWriter() *mockWriter {
	return &mockWriter{writtenFiles: make(map[string][]byte), perms: make(map[string]os.FileMode)}
}

func quietLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}
