package format_test

import (
	"strings"
	"testing"
	"time"

	"runvariant/internal/format"
)

func TestBasicTable(t *testing.T) {
	tb := format.NewTable()
	tb.Header("Stage", "Program")
	tb.Row("make_examples", "/opt/deepvariant/bin/make_examples")
	tb.Row("call_variants", "/opt/deepvariant/bin/call_variants")
	out := tb.String()

	if !strings.Contains(out, "Stage") {
		t.Errorf("expected header 'Stage' in output:\n%s", out)
	}
	if !strings.Contains(out, "make_examples") {
		t.Errorf("expected 'make_examples' in output:\n%s", out)
	}
	// StyleLight uses box-drawing characters
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in output:\n%s", out)
	}
}

func TestTableWithFooter(t *testing.T) {
	tb := format.NewTable()
	tb.Header("Stage", "Duration")
	tb.Row("make_examples", "12s")
	tb.Row("call_variants", "3m 2s")
	tb.Footer("TOTAL", "3m 14s")
	out := tb.String()

	if !strings.Contains(out, "TOTAL") {
		t.Errorf("expected footer 'TOTAL' in output:\n%s", out)
	}
	if !strings.Contains(out, "3m 14s") {
		t.Errorf("expected footer total in output:\n%s", out)
	}
}

func TestColumnsRightAlign(t *testing.T) {
	tb := format.NewTable()
	tb.Header("Stage", "Exit")
	tb.Row("call_variants", 14)
	tb.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	out := tb.String()

	if !strings.Contains(out, "14") {
		t.Errorf("expected '14' in output:\n%s", out)
	}
}

func TestColumnsMaxWidthWraps(t *testing.T) {
	long := strings.Repeat("x", 120)
	tb := format.NewTable()
	tb.Header("Stage", "Command")
	tb.Columns(format.ColumnConfig{Number: 2, MaxWidth: 40})
	tb.Row("make_examples", long)
	out := tb.String()

	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 80 {
			t.Errorf("line wider than the configured max width allows: %q", line)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m 0s"},
		{90 * time.Second, "1m 30s"},
		{61 * time.Minute, "61m 0s"},
	}
	for _, tc := range tests {
		got := format.FmtDuration(tc.in)
		if got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBoolMark(t *testing.T) {
	if format.BoolMark(true) != "✓" {
		t.Error("BoolMark(true) should be ✓")
	}
	if format.BoolMark(false) != "✗" {
		t.Error("BoolMark(false) should be ✗")
	}
}
