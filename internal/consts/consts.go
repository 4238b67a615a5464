package consts

// Specialist role names.
const (
	RoleNameHistorian    = "historian"
	RoleNameRouteAdvisor = "route_advisor"
	RoleNameWatchdog     = "watchdog"
)

// ML model identifiers as stored in the warehouse ML schema.
const (
	ModelGhostCycleDetector  = "GHOST_CYCLE_DETECTOR"
	ModelChokePointPredictor = "CHOKE_POINT_PREDICTOR"
	ModelCycleTimeOptimizer  = "CYCLE_TIME_OPTIMIZER"
)

// SourceRuleBased identifies alerts produced by the rule-based fallback
// rather than a probabilistic model.
const SourceRuleBased = "RULE_BASED_WATCHDOG"

// Conversation defaults.
const (
	DefaultSite = "ALPHA"
	DefaultHour = 10
)

// Sites known to the analytics backend.
var Sites = []string{"ALPHA", "BETA", "GAMMA", "DELTA"}
