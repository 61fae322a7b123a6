package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits every scope up to its
// deepest one.
type Level uint8

const (
	LevelOff    Level = iota // no tracing
	LevelError               // no span events; heartbeats only
	LevelPhase               // compile runs and their passes
	LevelDetail              // plus font loads and document reads
	LevelDebug               // plus single markup blocks
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

// deepest scope each level lets through; 0 admits none
var levelScopes = [...]Scope{
	LevelPhase:  ScopePass,
	LevelDetail: ScopeModule,
	LevelDebug:  ScopeNode,
}

var levelAliases = map[string]Level{
	"none":   LevelOff,
	"passes": LevelPhase,
	"fonts":  LevelDetail,
	"all":    LevelDebug,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// LevelNames lists the accepted level names for flag help.
func LevelNames() string {
	return strings.Join(levelNames[:], "|")
}

// ParseLevel reads a level name, ignoring case and surrounding space. An
// empty string is off.
func ParseLevel(s string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return LevelOff, nil
	}
	for l, name := range levelNames {
		if name == key {
			return Level(l), nil
		}
	}
	if l, ok := levelAliases[key]; ok {
		return l, nil
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, LevelNames())
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levelScopes) {
		return false
	}
	return scope <= levelScopes[l]
}
