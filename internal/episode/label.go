package episode

import (
	"fmt"
	"strings"

	"golang.org/x/text/message"
)

// NumberFormat selects how season and episode numbers are shown to users.
type NumberFormat string

const (
	NumberFormatDefault      NumberFormat = "default"       // 3x07
	NumberFormatEnglish      NumberFormat = "english"       // S03E07
	NumberFormatEnglishLower NumberFormat = "english-lower" // s03e07
)

// ParseNumberFormat parses a config value. The empty string is the default.
func ParseNumberFormat(s string) (NumberFormat, error) {
	switch f := NumberFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", NumberFormatDefault:
		return NumberFormatDefault, nil
	case NumberFormatEnglish, NumberFormatEnglishLower:
		return f, nil
	default:
		return "", fmt.Errorf("episode: unknown number format %q", s)
	}
}

// SeasonLabel formats a season number on its own, for messages that talk
// about a whole season. p localizes digits for the default format.
func SeasonLabel(p *message.Printer, f NumberFormat, season int) string {
	switch f {
	case NumberFormatEnglish:
		return fmt.Sprintf("S%02d", season)
	case NumberFormatEnglishLower:
		return fmt.Sprintf("s%02d", season)
	default:
		return p.Sprint(season)
	}
}

// EpisodeLabel formats a season and episode number pair.
func EpisodeLabel(p *message.Printer, f NumberFormat, season, number int) string {
	switch f {
	case NumberFormatEnglish:
		return fmt.Sprintf("S%02dE%02d", season, number)
	case NumberFormatEnglishLower:
		return fmt.Sprintf("s%02de%02d", season, number)
	default:
		return p.Sprint(season) + "x" + fmt.Sprintf("%02d", number)
	}
}
