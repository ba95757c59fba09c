package propagate

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tonimelisma/episodesync/internal/episode"
)

// Message keys. The English text doubles as the key.
const (
	msgSeasonSeen    = "Season %s set as watched"
	msgSeasonNotSeen = "Season %s set as not watched"
)

func init() {
	translations := []struct {
		tag        language.Tag
		key, trans string
	}{
		{language.English, msgSeasonSeen, msgSeasonSeen},
		{language.English, msgSeasonNotSeen, msgSeasonNotSeen},
		{language.German, msgSeasonSeen, "Staffel %s als gesehen markiert"},
		{language.German, msgSeasonNotSeen, "Staffel %s als nicht gesehen markiert"},
	}

	for _, t := range translations {
		if err := message.SetString(t.tag, t.key, t.trans); err != nil {
			panic(err)
		}
	}
}

// DefaultPrinter returns the printer used when none is configured.
func DefaultPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// BuildConfirmation returns the text shown after a season action to target.
// Skipping is not reported to the tracking service, so it has no message and
// ok is false.
func BuildConfirmation(
	p *message.Printer, format episode.NumberFormat, target episode.Flag, season int,
) (text string, ok bool) {
	if episode.IsSkipped(target) {
		return "", false
	}

	key := msgSeasonNotSeen
	if episode.IsWatched(target) {
		key = msgSeasonSeen
	}

	return p.Sprintf(key, episode.SeasonLabel(p, format, season)), true
}
