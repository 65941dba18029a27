// Package config loads duelcore settings from a YAML file and DUELCORE_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peterkuimelis/duelcore/internal/game"
)

type Config struct {
	Rules    RulesConfig    `mapstructure:"rules"`
	AI       AIConfig       `mapstructure:"ai"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Web      WebConfig      `mapstructure:"web"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
}

type RulesConfig struct {
	StartingLP         int `mapstructure:"starting_lp"`
	LPCeiling          int `mapstructure:"lp_ceiling"`
	HandLimit          int `mapstructure:"hand_limit"`
	InitialHand        int `mapstructure:"initial_hand"`
	SBAIterationCap    int `mapstructure:"sba_iteration_cap"`
	TriggerCascadeCap  int `mapstructure:"trigger_cascade_cap"`
	BreakdownThreshold int `mapstructure:"breakdown_threshold"`
}

type AIConfig struct {
	ActionCap     int           `mapstructure:"action_cap"`
	StepDelay     time.Duration `mapstructure:"step_delay"`
	WatchdogDelay time.Duration `mapstructure:"watchdog_delay"`
	Seed          uint64        `mapstructure:"seed"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

type CatalogConfig struct {
	Cards string `mapstructure:"cards"`
	Decks string `mapstructure:"decks"`
}

// DatabaseConfig selects the state store. An empty URL keeps matches in
// memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	r := game.DefaultRules()
	v.SetDefault("rules.starting_lp", r.StartingLP)
	v.SetDefault("rules.lp_ceiling", r.LPCeiling)
	v.SetDefault("rules.hand_limit", r.HandLimit)
	v.SetDefault("rules.initial_hand", r.InitialHand)
	v.SetDefault("rules.sba_iteration_cap", r.SBAIterationCap)
	v.SetDefault("rules.trigger_cascade_cap", r.TriggerCascadeCap)
	v.SetDefault("rules.breakdown_threshold", r.BreakdownThreshold)

	v.SetDefault("ai.action_cap", 5)
	v.SetDefault("ai.step_delay", "750ms")
	v.SetDefault("ai.watchdog_delay", "20s")
	v.SetDefault("ai.seed", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("server.addr", ":9000")
	v.SetDefault("web.addr", ":8080")
	v.SetDefault("catalog.cards", "cards.yaml")
	v.SetDefault("catalog.decks", "decks.yaml")
	v.SetDefault("database.url", "")
}

// Load reads path (optional; empty means defaults and environment only).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DUELCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Rules.StartingLP <= 0 {
		errs = append(errs, errors.New("rules.starting_lp must be positive"))
	}
	if c.Rules.LPCeiling < 0 {
		errs = append(errs, errors.New("rules.lp_ceiling must not be negative"))
	}
	if c.Rules.HandLimit <= 0 {
		errs = append(errs, errors.New("rules.hand_limit must be positive"))
	}
	if c.Rules.SBAIterationCap <= 0 || c.Rules.TriggerCascadeCap <= 0 {
		errs = append(errs, errors.New("iteration caps must be positive"))
	}
	if c.AI.ActionCap <= 0 {
		errs = append(errs, errors.New("ai.action_cap must be positive"))
	}
	if c.AI.WatchdogDelay <= c.AI.StepDelay {
		errs = append(errs, errors.New("ai.watchdog_delay must exceed ai.step_delay"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GameRules converts the rules section for the engine.
func (c *Config) GameRules() game.Rules {
	return game.Rules{
		StartingLP:         c.Rules.StartingLP,
		LPCeiling:          c.Rules.LPCeiling,
		HandLimit:          c.Rules.HandLimit,
		InitialHand:        c.Rules.InitialHand,
		SBAIterationCap:    c.Rules.SBAIterationCap,
		TriggerCascadeCap:  c.Rules.TriggerCascadeCap,
		BreakdownThreshold: c.Rules.BreakdownThreshold,
	}
}

// NewLogger builds a zap logger for the logging section.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	// stdout stays free for protocol output (MCP stdio, NDJSON)
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build()
}
