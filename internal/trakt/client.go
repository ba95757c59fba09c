package trakt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/episodesync/internal/remote"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://api.trakt.tv"

const (
	apiVersion = "2"

	historyAddPath    = "/sync/history"
	historyRemovePath = "/sync/history/remove"
)

// Counts is the per-type tally in a history response.
type Counts struct {
	Episodes int `json:"episodes"`
}

// HistoryResponse is the answer to a history call.
type HistoryResponse struct {
	Added    Counts    `json:"added"`
	Deleted  Counts    `json:"deleted"`
	NotFound SyncItems `json:"not_found"`
}

// Client sends history changes.
type Client struct {
	api    *remote.Client
	logger *slog.Logger
}

// NewClient creates a client. clientID is the application's API key; tokens
// supplies the user's access token.
func NewClient(
	baseURL, clientID string, httpClient *http.Client, tokens remote.TokenSource, logger *slog.Logger,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	auth := remote.Chain(
		remote.APIKey("trakt-api-version", apiVersion),
		remote.APIKey("trakt-api-key", clientID),
		remote.Bearer(tokens),
	)

	return &Client{
		api:    remote.NewClient("trakt", baseURL, httpClient, auth, logger),
		logger: logger,
	}
}

// SendHistory posts req to the add or remove endpoint.
func (c *Client) SendHistory(ctx context.Context, req HistoryRequest) error {
	path := historyAddPath
	if req.Action == ActionRemove {
		path = historyRemovePath
	}

	var resp HistoryResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, path, req.Items, &resp); err != nil {
		return fmt.Errorf("trakt: sending history (%s): %w", req.Action, err)
	}

	if n := len(resp.NotFound.Shows); n > 0 {
		c.logger.Warn("tracking service did not recognize show",
			slog.Int("not_found", n),
		)
	}

	c.logger.Info("history sent",
		slog.String("action", string(req.Action)),
		slog.Int("episodes", req.EpisodeCount()),
		slog.Int("added", resp.Added.Episodes),
		slog.Int("deleted", resp.Deleted.Episodes),
	)

	return nil
}
