package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"runvariant/internal/format"
	"runvariant/internal/history"
)

var historyFlags struct {
	dbPath string
	limit  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously recorded pipeline runs",
	Long: `history lists the runs recorded in the SQLite history database. A run is
recorded when the pipeline is invoked with --history_db; pass the same
path here (or keep the default).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.dbPath, "history_db", history.DefaultDBPath,
		"Path to the SQLite run history database.")
	f.IntVar(&historyFlags.limit, "limit", 20, "Maximum number of runs to list (0 = all).")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	s, err := history.Open(historyFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(historyFlags.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "No recorded runs in %s\n", historyFlags.dbPath)
		fmt.Fprintf(out, "Run the pipeline with --history_db=%s to record one.\n", historyFlags.dbPath)
		return nil
	}

	t := format.NewTable()
	t.Header("ID", "Started (UTC)", "Model", "Shards", "Stages", "Exit", "OK", "Duration", "Output VCF")
	for _, r := range runs {
		t.Row(r.ID, r.StartedAt, r.ModelType, r.NumShards, r.StagesRun,
			r.ExitCode, format.BoolMark(r.OK()), format.FmtDuration(r.Duration), r.OutputVCF)
	}
	t.Columns(
		format.ColumnConfig{Number: 1, Align: format.AlignRight},
		format.ColumnConfig{Number: 6, Align: format.AlignRight},
		format.ColumnConfig{Number: 9, MaxWidth: 60},
	)
	fmt.Fprintln(out, t.String())
	return nil
}
