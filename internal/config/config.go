package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Area groups the dwelling types selectable for meters registered in it.
type Area struct {
	Name      string   `json:"name"`
	Dwellings []string `json:"dwellings"`
}

type Config struct {
	DBFile     string
	ConfigFile string
	LogLevel   zerolog.Level

	Port    int    `json:"port"`
	LogFile string `json:"log_file"`

	// Simulation parameters
	ReadingIntervalMinutes int `json:"reading_interval_minutes"`
	RetentionMonths        int `json:"retention_months"`

	// Registration form data served by /api/areas
	Areas []Area `json:"areas"`

	// Datadog
	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	// Ntfy
	NtfyTopic string `json:"ntfy_topic"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.DBFile, "db-file", "data/meterd.db", "Path to sqlite database file")
	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to service config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadingIntervalMinutes == 0 {
		cfg.ReadingIntervalMinutes = 30
	}
	if cfg.RetentionMonths == 0 {
		cfg.RetentionMonths = 2
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "meterd."
	}
	if len(cfg.Areas) == 0 {
		cfg.Areas = []Area{
			{Name: "Central", Dwellings: []string{"HDB", "Condominium", "Landed"}},
			{Name: "East", Dwellings: []string{"HDB", "Condominium", "Landed"}},
			{Name: "North", Dwellings: []string{"HDB", "Condominium", "Landed"}},
			{Name: "North-East", Dwellings: []string{"HDB", "Condominium", "Landed"}},
			{Name: "West", Dwellings: []string{"HDB", "Condominium", "Landed"}},
		}
	}
}

func (cfg *Config) validate() {
	var problems []string

	if cfg.Port < 1 || cfg.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", cfg.Port))
	}
	if cfg.ReadingIntervalMinutes < 1 || 60%cfg.ReadingIntervalMinutes != 0 {
		problems = append(problems, fmt.Sprintf("reading_interval_minutes %d must divide an hour evenly", cfg.ReadingIntervalMinutes))
	}
	if cfg.RetentionMonths < 1 {
		problems = append(problems, fmt.Sprintf("retention_months %d must be at least 1", cfg.RetentionMonths))
	}
	for _, a := range cfg.Areas {
		if a.Name == "" {
			problems = append(problems, "area with empty name")
		}
		if len(a.Dwellings) == 0 {
			problems = append(problems, fmt.Sprintf("area %q has no dwelling types", a.Name))
		}
	}
	if cfg.EnableDatadog && cfg.DDAgentAddr == "" {
		problems = append(problems, "enable_datadog set but dd_agent_addr empty")
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, ", "))
	}
}
