// Package mirror talks to the cloud mirror of the local catalog.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/episodesync/internal/episode"
	"github.com/tonimelisma/episodesync/internal/remote"
)

const seasonsPath = "/episodes/v1/seasons"

// APIKeyHeader carries the mirror API key when no bearer token is used.
const APIKeyHeader = "X-Api-Key"

// EpisodeFlag is the new flag of one episode. The mirror stores flags as
// their numeric catalog values.
type EpisodeFlag struct {
	EpisodeID episode.EpisodeID `json:"episodeId"`
	Flag      int               `json:"flag"`
}

// SeasonUpdate is the wire body of a season update. Only the episodes
// changed by one job are listed.
type SeasonUpdate struct {
	ShowID       episode.ShowID `json:"showId"`
	SeasonNumber int            `json:"seasonNumber"`
	Episodes     []EpisodeFlag  `json:"episodes"`
}

// NewSeasonUpdate converts a payload to the mirror's wire shape.
func NewSeasonUpdate(p episode.SeasonPayload) SeasonUpdate {
	eps := make([]EpisodeFlag, 0, len(p.Changes))
	for _, c := range p.Changes {
		eps = append(eps, EpisodeFlag{EpisodeID: c.EpisodeID, Flag: int(c.Flag)})
	}

	return SeasonUpdate{
		ShowID:       p.ShowID,
		SeasonNumber: p.SeasonNumber,
		Episodes:     eps,
	}
}

// Client sends season updates to the mirror.
type Client struct {
	api    *remote.Client
	logger *slog.Logger
}

// NewClient creates a mirror client. auth is typically remote.APIKey with
// APIKeyHeader.
func NewClient(baseURL string, httpClient *http.Client, auth remote.Authorizer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		api:    remote.NewClient("mirror", baseURL, httpClient, auth, logger),
		logger: logger,
	}
}

// PutSeason uploads the changed episodes of p. An empty payload is a no-op.
func (c *Client) PutSeason(ctx context.Context, p episode.SeasonPayload) error {
	if p.Empty() {
		return nil
	}

	body := NewSeasonUpdate(p)

	if err := c.api.DoJSON(ctx, http.MethodPost, seasonsPath, body, nil); err != nil {
		return fmt.Errorf("mirror: uploading season %d of show %d: %w", p.SeasonNumber, p.ShowID, err)
	}

	c.logger.Info("season uploaded to mirror",
		slog.Int64("show_id", int64(p.ShowID)),
		slog.Int("season", p.SeasonNumber),
		slog.Int("episodes", len(body.Episodes)),
	)

	return nil
}
