package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestShortID(t *testing.T) {
	if got := shortID("8f14e45f-ceea-467f-9c37-b2a2ea1b33c8"); got != "8f14e45f" {
		t.Errorf("shortID = %q, want first uuid segment", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Errorf("shortID = %q, non-uuid values pass through", got)
	}
}

func TestTable_EmptyCellPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &bytes.Buffer{}}

	out.Table([]string{"ID", "LOT"}, [][]string{{"8f14e45f", ""}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header, separator and one row", len(lines))
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("row = %q, empty cell should render as dash", lines[2])
	}
}

func TestPrint_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{jsonMode: true, w: &buf, errW: &bytes.Buffer{}}

	out.Print([]string{"ID"}, [][]string{{"ignored"}}, map[string]string{"id": "full-value"})

	if !strings.Contains(buf.String(), `"id": "full-value"`) {
		t.Errorf("json output = %q", buf.String())
	}
}
