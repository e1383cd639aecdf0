package main

import (
	"time"

	"runvariant/internal/dispatch"
	"runvariant/internal/format"
	"runvariant/internal/pipeline"
)

// planTable renders the dry-run preview of what would execute.
func planTable(p *pipeline.Plan) string {
	tb := format.NewTable()
	tb.Header("#", "Stage", "Program", "Command")
	tb.Columns(
		format.ColumnConfig{Number: 1, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, MaxWidth: 100},
	)
	for i, sc := range p.Stages {
		tb.Row(i+1, sc.Stage, sc.Program, sc.Shell())
	}
	return tb.String()
}

// summaryTable renders per-stage timing and status after a run.
func summaryTable(results []dispatch.Result) string {
	tb := format.NewTable()
	tb.Header("Stage", "Duration", "Exit", "OK")
	tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight})

	var total time.Duration
	for _, r := range results {
		total += r.Duration
		tb.Row(r.Stage, format.FmtDuration(r.Duration), r.ExitCode, format.BoolMark(r.ExitCode == 0))
	}
	tb.Footer("TOTAL", format.FmtDuration(total), "", "")
	return tb.String()
}
