package detect

// AlertKind discriminates the two anomaly classes the watchdog raises.
type AlertKind string

const (
	KindGhostCycle AlertKind = "GHOST_CYCLE"
	KindChokePoint AlertKind = "CHOKE_POINT"
)

// Severity of a single alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityAlert    Severity = "ALERT"
	SeverityCritical Severity = "CRITICAL"
)

// Status summarizes a whole detection pass.
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusAlert    Status = "ALERT"
	StatusCritical Status = "CRITICAL"
)

// Alert is one qualifying detection. Confidence is set only when Source
// names a probabilistic model; rule-based alerts carry nil.
type Alert struct {
	Kind           AlertKind
	Severity       Severity
	Confidence     *float64
	EquipmentID    string
	Zone           string
	CostImpact     float64
	Message        string
	Recommendation string
	Source         string
}

// Assessment is the result of one detection pass.
type Assessment struct {
	Alerts          []Alert
	OverallStatus   Status
	TotalCostImpact float64
	Summary         string
}

// TelemetryRecord is one equipment's latest GPS and telematics reading.
type TelemetryRecord struct {
	EquipmentID   string
	Latitude      float64
	Longitude     float64
	SpeedMPH      float64
	EngineLoadPct float64
	FuelRateGPH   float64
	PayloadTons   float64
}

// ZoneMetric is current traffic density for one geographic zone.
type ZoneMetric struct {
	ZoneName       string
	Latitude       float64
	Longitude      float64
	EquipmentCount int
	AvgSpeedMPH    float64
}

// GhostPrediction is one record from the probabilistic ghost-cycle feed.
type GhostPrediction struct {
	EquipmentID           string
	SpeedMPH              float64
	EngineLoadPct         float64
	Probability           float64
	EstimatedFuelWasteGal float64
}

// ChokePrediction is one record from the probabilistic choke-point feed.
type ChokePrediction struct {
	ZoneName          string
	Latitude          float64
	Longitude         float64
	Probability       float64
	PredictedWaitMin  float64
	RecommendedAction string
}
