package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/episodesync/internal/notify"
)

func newWatchRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch-refresh",
		Short: "Print an event every time the catalog data changes",
		Long: `Watch the refresh stamp (notify.stamp_file) and print one line per update.
With --json each line is a JSON object {"type":"data-changed","at":...}.`,
		Args: cobra.NoArgs,
		RunE: runWatchRefresh,
	}
}

// refreshOutput is one line of `watch-refresh --json`.
type refreshOutput struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

func runWatchRefresh(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	path := cc.Cfg.Notify.StampFile
	if path == "" {
		return errors.New("watch-refresh: notify.stamp_file is empty")
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	cc.Statusf("Watching %s\n", path)

	var printErr error

	err := notify.NewWatcher(path, cc.Logger).Run(ctx, func(r notify.Refresh) {
		if printErr != nil {
			return
		}

		if cc.JSON {
			printErr = printJSONLine(cc.Out, refreshOutput{Type: "data-changed", At: r.At})
			return
		}

		_, printErr = fmt.Fprintf(cc.Out, "data changed at %s\n", r.At.Local().Format(time.RFC3339))
	})

	if printErr != nil {
		return printErr
	}

	return err
}
