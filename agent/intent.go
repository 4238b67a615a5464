package agent

import (
	"regexp"
	"strings"
)

// Intent is the resolved topic of one chat turn.
type Intent string

const (
	IntentGhostCycle Intent = "GHOST_CYCLE"
	IntentRoute      Intent = "ROUTE"
	IntentCycleTime  Intent = "CYCLE_TIME"
	IntentMLExplain  Intent = "ML_EXPLAIN"
	IntentAnalytical Intent = "ANALYTICAL"
	IntentSearch     Intent = "SEARCH"
	IntentStatus     Intent = "STATUS"
	IntentGeneral    Intent = "GENERAL"
)

type intentGroup struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compileGroup(intent Intent, patterns ...string) intentGroup {
	g := intentGroup{intent: intent}
	for _, p := range patterns {
		g.patterns = append(g.patterns, regexp.MustCompile(p))
	}
	return g
}

// intentGroups is scanned top to bottom; the first group with any matching
// pattern wins, so broad vocabularies (like analytical) sit below the more
// specific ones that share keywords with them.
var intentGroups = []intentGroup{
	compileGroup(IntentGhostCycle,
		`ghost.?cycle`, `fuel.?waste`, `idle`, `inefficien`, `burning fuel`, `not working`),
	compileGroup(IntentRoute,
		`route`, `traffic`, `choke.?point`, `congestion`, `bottleneck`, `divert`, `alternate`),
	compileGroup(IntentCycleTime,
		`cycle.?time`, `how long`, `predict.*time`, `estimate.*time`),
	compileGroup(IntentMLExplain,
		`why.*detect`, `explain.*model`, `feature.*import`, `shap`, `what.*predict`),
	compileGroup(IntentAnalytical,
		`how many`, `total`, `count`, `average`, `list`, `show me.*data`, `statistics`),
	compileGroup(IntentSearch,
		`search`, `find`, `safety`, `geotechnical`, `document`, `procedure`, `history`),
	compileGroup(IntentStatus,
		`status`, `current`, `right now`, `fleet`, `equipment`),
}

// Classify resolves the intent of a user message. Messages matching no
// group classify as GENERAL; that is a routing decision, not an error.
func Classify(message string) Intent {
	lower := strings.ToLower(message)
	for _, group := range intentGroups {
		for _, pattern := range group.patterns {
			if pattern.MatchString(lower) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}
