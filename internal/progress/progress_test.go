package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCLIProgress_PrintsOnlyNewText(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewCLIProgress(&out, &errOut, false)

	p.Start("Waiting for reply")
	p.Update("Hel")
	p.Update("Hello")
	p.Update("Hello, world")
	p.Finish()

	if got := out.String(); got != "Hello, world\n" {
		t.Errorf("output = %q, want %q", got, "Hello, world\n")
	}
	if errOut.Len() != 0 {
		t.Errorf("no spinner expected without a terminal, got %q", errOut.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestCLIProgress_FinishWithoutText(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewCLIProgress(&out, &errOut, false)

	p.Start("Waiting for reply")
	p.Finish()

	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestCLIProgress_SpinnerStopsOnFirstChunk(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewCLIProgress(&out, &errOut, true)

	p.Start("Waiting for reply")
	p.Update("Hi")
	p.Error(errors.New("connection reset"))

	if out.String() != "Hi" {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "Error: connection reset") {
		t.Errorf("expected error on stderr, got %q", errOut.String())
	}
	if p.spinner != nil {
		t.Error("spinner should be stopped")
	}
}
