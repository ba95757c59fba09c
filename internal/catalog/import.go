package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// ImportFile is the JSON document accepted by Import.
type ImportFile struct {
	Shows []ImportShow `json:"shows"`
}

// ImportShow is one show of an import file.
type ImportShow struct {
	ID      episode.ShowID `json:"id"`
	Title   string         `json:"title"`
	Seasons []ImportSeason `json:"seasons"`
}

// ImportSeason is one season of an import file.
type ImportSeason struct {
	ID       episode.SeasonID `json:"id"`
	Number   int              `json:"number"`
	Episodes []ImportEpisode  `json:"episodes"`
}

// ImportEpisode is one episode of an import file. A missing released field
// means the air date is unknown. A missing flag keeps the stored flag of an
// existing episode; new episodes start unwatched.
type ImportEpisode struct {
	ID       episode.EpisodeID `json:"id"`
	Number   int               `json:"number"`
	Title    string            `json:"title"`
	Released *time.Time        `json:"released"`
	Flag     *episode.Flag     `json:"flag"`
}

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Shows    int
	Seasons  int
	Episodes int
}

// Import reads an ImportFile from r and upserts its contents in one
// transaction. On error nothing is written.
func (s *Store) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var f ImportFile

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		return ImportStats{}, fmt.Errorf("catalog: decoding import file: %w", err)
	}

	var stats ImportStats

	err := s.InTx(ctx, func(t *Tx) error {
		stats = ImportStats{}

		for _, show := range f.Shows {
			if err := t.UpsertShow(ctx, Show{ID: show.ID, Title: show.Title}); err != nil {
				return err
			}

			stats.Shows++

			for _, season := range show.Seasons {
				if err := t.UpsertSeason(ctx, Season{ID: season.ID, ShowID: show.ID, Number: season.Number}); err != nil {
					return err
				}

				stats.Seasons++

				for _, ie := range season.Episodes {
					if err := t.UpsertEpisode(ctx, ie.episode(show.ID, season), ie.Flag); err != nil {
						return err
					}
				}

				stats.Episodes += len(season.Episodes)
			}
		}

		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	s.logger.Info("catalog import finished",
		slog.Int("shows", stats.Shows),
		slog.Int("seasons", stats.Seasons),
		slog.Int("episodes", stats.Episodes),
	)

	return stats, nil
}

func (ie ImportEpisode) episode(showID episode.ShowID, season ImportSeason) episode.Episode {
	e := episode.Episode{
		ID:           ie.ID,
		ShowID:       showID,
		SeasonID:     season.ID,
		SeasonNumber: season.Number,
		Number:       ie.Number,
		Title:        ie.Title,
	}

	if ie.Released != nil {
		e.Released = ie.Released.UTC()
	}

	return e
}
