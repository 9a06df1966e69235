package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LoggerPatternConfig is an instance of a level specification for a given logger.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "foo".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "foo" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "foo.*.foo".
	validLoggerSectionsWithWildcard = validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*`
	validLoggerName                 = `^` + validLoggerSectionsWithWildcard + `$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// Validate checks the pattern syntax and the level name.
func (lpc LoggerPatternConfig) Validate() error {
	if !loggerPatternRegexp.MatchString(lpc.Pattern) {
		return errors.Errorf("invalid logger pattern %q", lpc.Pattern)
	}
	if _, err := LevelFromString(lpc.Level); err != nil {
		return err
	}
	return nil
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// LevelFor returns the level of the last pattern matching `name`. Later patterns win.
func LevelFor(name string, patterns []LoggerPatternConfig) (Level, bool) {
	var (
		level Level
		found bool
	)
	for _, lpc := range patterns {
		if lpc.Validate() != nil {
			continue
		}
		if !regexp.MustCompile(buildRegexFromPattern(lpc.Pattern)).MatchString(name) {
			continue
		}
		// Validate already parsed the level.
		level, _ = LevelFromString(lpc.Level)
		found = true
	}
	return level, found
}

// NamedSublogger creates a sublogger and applies the last configured level whose pattern
// matches the full logger name.
func NamedSublogger(parent Logger, subname string, patterns []LoggerPatternConfig) Logger {
	logger := parent.Sublogger(subname)
	if level, ok := LevelFor(logger.Name(), patterns); ok {
		logger.SetLevel(level)
	}
	return logger
}
