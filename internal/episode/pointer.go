package episode

import (
	"fmt"
	"log/slog"
)

// PointerState tells the three kinds of last-watched pointer apart.
type PointerState int

const (
	// PointerNone: the season was reset, the stored pointer is cleared.
	// The catalog was not queried.
	PointerNone PointerState = iota
	// PointerNotFound: the catalog was queried and no released episode
	// exists. The stored pointer is left as it is.
	PointerNotFound
	// PointerSet: the pointer names an episode.
	PointerSet
)

func (s PointerState) String() string {
	switch s {
	case PointerNone:
		return "none"
	case PointerNotFound:
		return "not_found"
	case PointerSet:
		return "set"
	default:
		return fmt.Sprintf("PointerState(%d)", int(s))
	}
}

// Pointer is the derived last-watched episode of a season.
type Pointer struct {
	state PointerState
	id    EpisodeID
}

// NoPointer returns the sentinel used when a season is reset to unwatched.
func NoPointer() Pointer {
	return Pointer{state: PointerNone}
}

// NotFoundPointer returns the sentinel for "queried, nothing found".
func NotFoundPointer() Pointer {
	return Pointer{state: PointerNotFound}
}

// PointTo returns a pointer naming id.
func PointTo(id EpisodeID) Pointer {
	return Pointer{state: PointerSet, id: id}
}

// State returns which kind of pointer p is.
func (p Pointer) State() PointerState {
	return p.state
}

// EpisodeID returns the episode p names. ok is false for both sentinels.
func (p Pointer) EpisodeID() (id EpisodeID, ok bool) {
	return p.id, p.state == PointerSet
}

func (p Pointer) String() string {
	if p.state == PointerSet {
		return fmt.Sprintf("episode %d", p.id)
	}

	return p.state.String()
}

// LogValue implements slog.LogValuer.
func (p Pointer) LogValue() slog.Value {
	if p.state == PointerSet {
		return slog.GroupValue(
			slog.String("state", p.state.String()),
			slog.Int64("episode_id", int64(p.id)),
		)
	}

	return slog.GroupValue(slog.String("state", p.state.String()))
}
