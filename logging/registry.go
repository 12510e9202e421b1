package logging

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// LoggerPatternConfig sets the level of every logger whose name matches Pattern. Patterns are
// dot separated logger names where a "*" section matches anything, e.g. "cutout.session.*".
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
	validLoggerName = `^` + validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// Validate ensures the pattern and level are well formed.
func (lpc LoggerPatternConfig) Validate() error {
	if !loggerPatternRegexp.MatchString(lpc.Pattern) {
		return errors.Errorf("invalid logger pattern %q", lpc.Pattern)
	}
	if _, err := LevelFromString(lpc.Level); err != nil {
		return err
	}
	return nil
}

func (lpc LoggerPatternConfig) matches(name string) bool {
	return regexp.MustCompile(buildRegexFromPattern(lpc.Pattern)).MatchString(name)
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
			matcher.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// Registry tracks named loggers so their levels can be changed by pattern after creation.
type Registry struct {
	mu           sync.RWMutex
	loggers      map[string]Logger
	logConfig    []LoggerPatternConfig
	defaultLevel Level
}

// NewRegistry returns an empty registry. Loggers no pattern matches are set to defaultLevel when
// the configuration changes.
func NewRegistry(defaultLevel Level) *Registry {
	return &Registry{
		loggers:      make(map[string]Logger),
		defaultLevel: defaultLevel,
	}
}

// GetOrRegister returns the logger already registered under name, or registers logger and
// configures it from the current patterns. When callers race, all of them get the winner's logger.
func (lr *Registry) GetOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	if level, ok := levelFor(lr.logConfig, name); ok {
		logger.SetLevel(level)
	}
	return logger
}

// Deregister removes the logger registered under name.
func (lr *Registry) Deregister(name string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	_, ok := lr.loggers[name]
	delete(lr.loggers, name)
	return ok
}

// LoggerNamed returns the logger registered under name.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Names returns the registered logger names, sorted.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateConfig replaces the patterns and re-levels every registered logger. Invalid patterns are
// skipped with a warning to errorLogger. When several patterns match a logger the last one wins.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) {
	valid := make([]LoggerPatternConfig, 0, len(logConfig))
	for _, lpc := range logConfig {
		if err := lpc.Validate(); err != nil {
			errorLogger.Warnw("failed to validate a logger pattern", "pattern", lpc.Pattern, "error", err)
			continue
		}
		valid = append(valid, lpc)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = valid
	for name, logger := range lr.loggers {
		level, ok := levelFor(valid, name)
		if !ok {
			level = lr.defaultLevel
		}
		logger.SetLevel(level)
	}
}

func levelFor(logConfig []LoggerPatternConfig, name string) (Level, bool) {
	var (
		level Level
		found bool
	)
	for _, lpc := range logConfig {
		if !lpc.matches(name) {
			continue
		}
		l, err := LevelFromString(lpc.Level)
		if err != nil {
			continue
		}
		level, found = l, true
	}
	return level, found
}
