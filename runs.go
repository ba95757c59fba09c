package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

const defaultRunsLimit = 20

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent season jobs from the run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1, got %d", limit)
			}

			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultRunsLimit, "maximum number of runs to list")

	return cmd
}

// runOutput is one entry of `runs --json`.
type runOutput struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	ShowID     int64     `json:"show_id"`
	SeasonID   int64     `json:"season_id"`
	Target     string    `json:"target"`
	State      string    `json:"state"`
	Changed    int       `json:"changed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

func runRuns(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	store, err := openStore(ctx, cc)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	if cc.JSON {
		out := make([]runOutput, len(runs))
		for i, r := range runs {
			out[i] = runOutput{
				RunID:      r.ID,
				Kind:       r.Kind,
				ShowID:     int64(r.ShowID),
				SeasonID:   int64(r.SeasonID),
				Target:     r.Target.String(),
				State:      r.State,
				Changed:    r.Changed,
				StartedAt:  r.StartedAt,
				FinishedAt: r.FinishedAt,
				Error:      r.Error,
			}
		}

		return printJSON(cc.Out, out)
	}

	if len(runs) == 0 {
		cc.Statusf("No runs recorded.\n")
		return nil
	}

	now := time.Now()
	rows := make([][]string, len(runs))

	for i, r := range runs {
		rows[i] = []string{
			formatTime(r.StartedAt, now),
			r.ID[:min(8, len(r.ID))],
			strconv.FormatInt(int64(r.ShowID), 10),
			strconv.FormatInt(int64(r.SeasonID), 10),
			r.Target.String(),
			r.State,
			strconv.Itoa(r.Changed),
		}
	}

	printTable(cc.Out, []string{"STARTED", "RUN", "SHOW", "SEASON", "TARGET", "STATE", "CHANGED"}, rows)

	return nil
}
