// Package trakt reports watch history to the trakt.tv tracking service.
package trakt

import (
	"github.com/tonimelisma/episodesync/internal/episode"
)

// HistoryAction selects the history endpoint.
type HistoryAction string

const (
	ActionAdd    HistoryAction = "add"
	ActionRemove HistoryAction = "remove"
)

// IDs identifies a show. The catalog's show ids are TheTVDB ids.
type IDs struct {
	TVDB int64 `json:"tvdb"`
}

// SyncEpisode is one episode of a season.
type SyncEpisode struct {
	Number int `json:"number"`
}

// SyncSeason lists episodes of one season.
type SyncSeason struct {
	Number   int           `json:"number"`
	Episodes []SyncEpisode `json:"episodes"`
}

// SyncShow lists seasons of one show.
type SyncShow struct {
	IDs     IDs          `json:"ids"`
	Seasons []SyncSeason `json:"seasons"`
}

// SyncItems is the body of a history add or remove call.
type SyncItems struct {
	Shows []SyncShow `json:"shows"`
}

// HistoryRequest is a history change ready to send.
type HistoryRequest struct {
	Action HistoryAction
	Items  SyncItems
}

// EpisodeCount returns the number of episodes in the request.
func (r HistoryRequest) EpisodeCount() int {
	n := 0

	for _, show := range r.Items.Shows {
		for _, season := range show.Seasons {
			n += len(season.Episodes)
		}
	}

	return n
}

// BuildHistoryRequest converts a season payload into a history change.
// Watched payloads are added, unwatched payloads are removed. Skips never
// reach trakt, so a removal leaves out episodes that were only skipped.
// Skipped payloads and payloads with nothing to send have no history change
// and ok is false.
func BuildHistoryRequest(p episode.SeasonPayload) (req HistoryRequest, ok bool) {
	if p.Empty() || episode.IsSkipped(p.Flag) {
		return HistoryRequest{}, false
	}

	action := ActionRemove
	if episode.IsWatched(p.Flag) {
		action = ActionAdd
	}

	eps := make([]SyncEpisode, 0, len(p.Changes))
	for _, c := range p.Changes {
		if action == ActionRemove && episode.IsSkipped(c.Previous) {
			continue
		}

		eps = append(eps, SyncEpisode{Number: c.Number})
	}

	if len(eps) == 0 {
		return HistoryRequest{}, false
	}

	return HistoryRequest{
		Action: action,
		Items: SyncItems{Shows: []SyncShow{{
			IDs:     IDs{TVDB: int64(p.ShowID)},
			Seasons: []SyncSeason{{Number: p.SeasonNumber, Episodes: eps}},
		}}},
	}, true
}
