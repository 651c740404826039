package app

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"satchel/server/internal/observability"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
)

const (
	defaultAddr         = ":8080"
	defaultSlots        = 36
	defaultMaxSlots     = 256
	defaultJSONLogPath  = "satchel-events.jsonl"
	defaultSubjectScope = "satchel.inventory"
)

type Config struct {
	Logger        telemetry.Logger
	Observability observability.Config
	Logging       logging.Config

	Addr         string
	DefaultSlots int
	MaxSlots     int
	CatalogPath  string

	NATSURL           string
	NATSSubjectPrefix string
}

// DefaultConfig returns the configuration used when no environment overrides are set.
func DefaultConfig() Config {
	logCfg := logging.DefaultConfig()
	logCfg.JSON.FilePath = defaultJSONLogPath
	logCfg.Fields = map[string]any{"service": "satchel"}
	return Config{
		Logging:           logCfg,
		Addr:              defaultAddr,
		DefaultSlots:      defaultSlots,
		MaxSlots:          defaultMaxSlots,
		NATSSubjectPrefix: defaultSubjectScope,
	}
}

// LoadConfig reads an optional .env file from the working directory and then
// the process environment.
func LoadConfig(logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("failed to load .env: %v", err)
	}
	return ConfigFromEnv(os.Getenv, logger)
}

// ConfigFromEnv overlays environment values read through getenv onto
// DefaultConfig. Values that fail to parse are logged and ignored.
func ConfigFromEnv(getenv func(string) string, logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	cfg := DefaultConfig()
	cfg.Logger = logger

	if raw := getenv("SATCHEL_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	if value, ok := positiveInt(getenv, "SATCHEL_DEFAULT_SLOTS", logger); ok {
		cfg.DefaultSlots = value
	}
	if value, ok := positiveInt(getenv, "SATCHEL_MAX_SLOTS", logger); ok {
		cfg.MaxSlots = value
	}
	if cfg.DefaultSlots > cfg.MaxSlots {
		logger.Printf("SATCHEL_DEFAULT_SLOTS=%d exceeds SATCHEL_MAX_SLOTS=%d; clamping", cfg.DefaultSlots, cfg.MaxSlots)
		cfg.DefaultSlots = cfg.MaxSlots
	}
	cfg.CatalogPath = strings.TrimSpace(getenv("SATCHEL_CATALOG_PATH"))

	cfg.NATSURL = strings.TrimSpace(getenv("SATCHEL_NATS_URL"))
	if raw := strings.TrimSpace(getenv("SATCHEL_NATS_SUBJECT_PREFIX")); raw != "" {
		cfg.NATSSubjectPrefix = raw
	}

	if raw := getenv("SATCHEL_LOG_SINKS"); raw != "" {
		var sinks []string
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch name {
			case "":
			case logging.SinkConsole, logging.SinkJSON:
				sinks = append(sinks, name)
			default:
				logger.Printf("ignoring unknown log sink %q", name)
			}
		}
		cfg.Logging.EnabledSinks = sinks
	}
	if raw := getenv("SATCHEL_LOG_JSON_PATH"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := getenv("SATCHEL_LOG_LEVEL"); raw != "" {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid SATCHEL_LOG_LEVEL=%q: %v", raw, err)
		}
	}

	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}
	return cfg
}

func positiveInt(getenv func(string) string, key string, logger telemetry.Logger) (int, bool) {
	raw := getenv(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return 0, false
	}
	if value <= 0 {
		logger.Printf("invalid %s=%q: must be positive", key, raw)
		return 0, false
	}
	return value, true
}
