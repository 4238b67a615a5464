package config

import (
	"github.com/BurntSushi/toml"

	"github.com/earthmover/utils"
)

// Config is the root configuration structure decoded from config.toml.
type Config struct {
	App      AppConfig                `toml:"app" validate:"required"`
	Log      LogConfig                `toml:"log"`
	Chat     ChatConfig               `toml:"chat"`
	Detect   DetectConfig             `toml:"detect"`
	Stream   StreamConfig             `toml:"stream"`
	Metrics  MetricsConfig            `toml:"metrics"`
	Services map[string]ServiceConfig `toml:"services" validate:"dive"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Name        string `toml:"name" validate:"required"`
	Environment string `toml:"environment"`
}

// LogConfig controls the slog handler installed at startup.
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
	Output string `toml:"output"`
}

// ChatConfig holds conversation defaults for the orchestrator and REPL.
type ChatConfig struct {
	DefaultSite   string `toml:"default_site"`
	DefaultHour   int    `toml:"default_hour" validate:"min=0,max=23"`
	TranscriptDir string `toml:"transcript_dir"`
}

// DetectConfig overrides the built-in detection defaults. Zero values mean
// "use the built-in default".
type DetectConfig struct {
	GhostProbability  float64 `toml:"ghost_probability" validate:"min=0,max=1"`
	ChokeProbability  float64 `toml:"choke_probability" validate:"min=0,max=1"`
	GhostSpeedMin     float64 `toml:"ghost_speed_min" validate:"min=0"`
	GhostLoadMax      float64 `toml:"ghost_load_max" validate:"min=0,max=100"`
	ChokeSpeedMax     float64 `toml:"choke_speed_max" validate:"min=0"`
	ChokeDensityMin   int     `toml:"choke_density_min" validate:"min=0"`
	FuelCostPerGallon float64 `toml:"fuel_cost_per_gallon" validate:"min=0"`
}

// StreamConfig configures the hosted agent streaming client.
type StreamConfig struct {
	Endpoint  string         `toml:"endpoint" validate:"omitempty,url"`
	TokenPath string         `toml:"token_path"`
	Timeout   utils.Duration `toml:"timeout"`
}

// MetricsConfig configures the Prometheus listener. An empty address
// disables the listener.
type MetricsConfig struct {
	Addr string `toml:"addr" validate:"omitempty,hostname_port"`
}

// ServiceConfig declares one external service instance. Options stay as a
// toml.Primitive and are decoded lazily by the parser registered for Type.
type ServiceConfig struct {
	Type        string         `toml:"type" validate:"required,oneof=warehouse docsearch notify tickets"`
	Enabled     bool           `toml:"enabled"`
	Description string         `toml:"description"`
	Options     toml.Primitive `toml:"options"`
}
