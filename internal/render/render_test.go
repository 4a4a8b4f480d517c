package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRender_SimpleSubstitution(t *testing.T) {
	r := New(t.TempDir())
	out, err := r.Render("hello {{.NAME}}", map[string]string{"NAME": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_UndefinedFailsStrict(t *testing.T) {
	r := New(t.TempDir())
	_, err := r.Render("{{.MISSING}}", map[string]string{"PRESENT": "x"})
	if !errors.Is(err, ErrUndefined) {
		t.Fatalf("expected ErrUndefined, got %v", err)
	}
}

func TestRender_ReadFileResolvesRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "note.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	r := New(root)
	out, err := r.Render(`{{read_file "note.txt"}}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "payload" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_IncludeFileIsAliasOfReadFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "note.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	r := New(root)
	out, err := r.Render(`{{include_file "note.txt"}}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "payload" {
		t.Fatalf("got %q", out)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"intake":     "INTAKE",
		"01-review":  "01_REVIEW",
		"a.b c":      "A_B_C",
		"ALREADY_OK": "ALREADY_OK",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
