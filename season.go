package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/episodesync/internal/catalog"
	"github.com/tonimelisma/episodesync/internal/episode"
	"github.com/tonimelisma/episodesync/internal/propagate"
)

// errSeasonUpdate is the only thing users see when a local update aborts.
// The cause is logged.
var errSeasonUpdate = errors.New("could not update season")

// seasonFlags are the flags that pick a season.
type seasonFlags struct {
	show   int64
	season int
}

func (f *seasonFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.show, "show", 0, "show id")
	cmd.Flags().IntVar(&f.season, "season", 0, "season number (0 for specials)")

	_ = cmd.MarkFlagRequired("show")
	_ = cmd.MarkFlagRequired("season")
}

func newSeasonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "season",
		Short: "Inspect and change the watch state of a season",
	}

	cmd.AddCommand(newSeasonMarkCmd())
	cmd.AddCommand(newSeasonShowCmd())

	return cmd
}

func newSeasonMarkCmd() *cobra.Command {
	var (
		sf       seasonFlags
		flag     string
		nowRaw   string
		noRemote bool
	)

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark a whole season watched, skipped or unwatched",
		Long: `Mark every eligible episode of a season with one flag.

watched and skipped touch only episodes released by now (plus one hour) that
are not already watched; unwatched resets every episode of the season.
The change is applied locally first, then sent to the mirror and trakt.tv
unless --no-remote is given. Skips are never sent to trakt.tv.`,
		Example: "  episodesync season mark --show 81189 --season 3 --flag watched",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := episode.ParseFlag(flag)
			if err != nil {
				return err
			}

			now, err := parseNow(nowRaw)
			if err != nil {
				return err
			}

			return runSeasonMark(cmd, sf, target, now, !noRemote)
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&flag, "flag", "", "target flag: watched, skipped or unwatched")
	cmd.Flags().StringVar(&nowRaw, "now", "", "reference time (RFC 3339), defaults to the current time")
	cmd.Flags().BoolVar(&noRemote, "no-remote", false, "update the local catalog only")

	_ = cmd.MarkFlagRequired("flag")

	return cmd
}

// parseNow returns the current time for "" and the parsed RFC 3339 time
// otherwise.
func parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}

	return t, nil
}

// markOutput is the JSON schema for `season mark --json`.
type markOutput struct {
	RunID        string `json:"run_id"`
	State        string `json:"state"`
	ShowID       int64  `json:"show_id"`
	SeasonID     int64  `json:"season_id"`
	Season       int    `json:"season"`
	Target       string `json:"target"`
	Changed      []int  `json:"changed"`
	LastWatched  string `json:"last_watched"`
	Confirmation string `json:"confirmation,omitempty"`
	RemoteError  string `json:"remote_error,omitempty"`
}

func runSeasonMark(cmd *cobra.Command, sf seasonFlags, target episode.Flag, now time.Time, withRemote bool) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	sess, err := newSeasonSession(ctx, cc, withRemote)
	if err != nil {
		return err
	}
	defer sess.Close()

	scope, err := sess.store.FindSeason(ctx, episode.ShowID(sf.show), sf.season)
	if err != nil {
		return fmt.Errorf("season %d of show %d: %w", sf.season, sf.show, err)
	}

	res, err := sess.queue.Submit(ctx, propagate.Request{Scope: scope, Target: target, Now: now})

	var remoteErr error

	switch {
	case errors.Is(err, propagate.ErrRemoteUnavailable):
		// Local state is kept; the remotes are behind.
		remoteErr = err
	case err != nil:
		cc.Logger.Error("season update failed",
			slog.Any("scope", scope),
			slog.String("target", target.String()),
			slog.String("error", err.Error()),
		)

		return errSeasonUpdate
	}

	if cc.JSON {
		out := markOutput{
			RunID:        res.RunID,
			State:        res.State.String(),
			ShowID:       int64(scope.ShowID),
			SeasonID:     int64(scope.SeasonID),
			Season:       scope.SeasonNumber,
			Target:       target.String(),
			Changed:      changedNumbers(res.Changes),
			LastWatched:  res.Pointer.String(),
			Confirmation: res.Confirmation,
		}

		if remoteErr != nil {
			out.RemoteError = remoteErr.Error()
		}

		return printJSON(cc.Out, out)
	}

	if res.HasConfirmation {
		fmt.Fprintln(cc.Out, res.Confirmation)
	}

	cc.Statusf("%d episode(s) changed\n", len(res.Changes))

	if remoteErr != nil {
		cc.Statusf("Warning: %v\n", remoteErr)
	}

	return nil
}

func changedNumbers(changes []episode.Change) []int {
	nums := make([]int, len(changes))
	for i, c := range changes {
		nums[i] = c.Number
	}

	return nums
}

func newSeasonShowCmd() *cobra.Command {
	var sf seasonFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the episodes of a season with their flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeasonShow(cmd, sf)
		},
	}

	sf.register(cmd)

	return cmd
}

// seasonOutput is the JSON schema for `season show --json`.
type seasonOutput struct {
	ShowID        int64             `json:"show_id"`
	SeasonID      int64             `json:"season_id"`
	Season        int               `json:"season"`
	LastWatchedID int64             `json:"last_watched_id,omitempty"`
	LastWatchedAt time.Time         `json:"last_watched_at,omitzero"`
	Episodes      []episode.Episode `json:"episodes"`
}

func runSeasonShow(cmd *cobra.Command, sf seasonFlags) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	store, err := openStore(ctx, cc)
	if err != nil {
		return err
	}
	defer store.Close()

	scope, err := store.FindSeason(ctx, episode.ShowID(sf.show), sf.season)
	if err != nil {
		return fmt.Errorf("season %d of show %d: %w", sf.season, sf.show, err)
	}

	season, err := store.Season(ctx, scope.SeasonID)
	if err != nil {
		return err
	}

	eps, err := store.SeasonEpisodes(ctx, scope.SeasonID)
	if err != nil {
		return err
	}

	if cc.JSON {
		return printJSON(cc.Out, seasonOutput{
			ShowID:        int64(season.ShowID),
			SeasonID:      int64(season.ID),
			Season:        season.Number,
			LastWatchedID: int64(season.LastWatchedID),
			LastWatchedAt: season.LastWatchedAt,
			Episodes:      eps,
		})
	}

	printSeason(cc, season, eps)

	return nil
}

func printSeason(cc *CLIContext, season *catalog.Season, eps []episode.Episode) {
	p := displayPrinter(cc)
	format, _ := episode.ParseNumberFormat(cc.Cfg.Display.NumberFormat)
	now := time.Now()

	rows := make([][]string, 0, len(eps))
	lastLabel := noTime

	for _, e := range eps {
		label := episode.EpisodeLabel(p, format, e.SeasonNumber, e.Number)
		if e.ID == season.LastWatchedID {
			lastLabel = label
		}

		rows = append(rows, []string{
			label, strconv.FormatInt(int64(e.ID), 10), e.Flag.String(), formatTime(e.Released, now), e.Title,
		})
	}

	fmt.Fprintf(cc.Out, "Last watched: %s (marked %s)\n\n", lastLabel, formatTime(season.LastWatchedAt, now))
	printTable(cc.Out, []string{"EPISODE", "ID", "FLAG", "RELEASED", "TITLE"}, rows)
}
