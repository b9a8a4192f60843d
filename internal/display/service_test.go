package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlainOutputOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(&buf)

	if service.IsColorSupported() {
		t.Error("a bytes.Buffer is not a terminal; color must be off")
	}

	service.Success("backup finished in %s", "2s")
	service.Error("restore failed")
	service.Warn("retired table left behind")
	service.Info("4 tables mirrored")
	service.Plain("done")

	output := buf.String()
	for _, want := range []string{
		"✓ backup finished in 2s",
		"✗ restore failed",
		"! retired table left behind",
		"• 4 tables mirrored",
		"done",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	if strings.Contains(output, "\x1b[") {
		t.Error("plain output must not contain ANSI escape codes")
	}
}

func TestLinesEndWithNewline(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(&buf)

	service.Success("one")
	service.Info("two")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
}
