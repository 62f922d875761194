package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pequito193/PCD-Projeto/internal/session"
)

// Config is the process configuration, read from a yaml file with
// environment overrides for deployment knobs.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"server"`
	Quiz struct {
		Path string `yaml:"path"`
	} `yaml:"quiz"`
	Game struct {
		AnswerWindowSec int    `yaml:"answer_window_sec"`
		RoundPauseSec   int    `yaml:"round_pause_sec"`
		BonusSlots      int    `yaml:"bonus_slots"`
		BonusMultiplier int    `yaml:"bonus_multiplier"`
		Welcome         string `yaml:"welcome"`
	} `yaml:"game"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = "8080"
	cfg.Quiz.Path = "data/quizzes.json"
	pacing := session.DefaultPacing()
	cfg.Game.AnswerWindowSec = int(pacing.AnswerWindow / time.Second)
	cfg.Game.RoundPauseSec = int(pacing.RoundPause / time.Second)
	cfg.Game.BonusSlots = pacing.BonusSlots
	cfg.Game.BonusMultiplier = pacing.BonusMultiplier
	cfg.Game.Welcome = pacing.Welcome
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the yaml config at path (defaults apply when the file
// is absent) and applies environment overrides.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Run on defaults; env overrides still apply.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Quiz.Path = getEnv("QUIZ_PATH", cfg.Quiz.Path)
	cfg.Game.AnswerWindowSec = getEnvAsInt("ANSWER_WINDOW_SEC", cfg.Game.AnswerWindowSec)
	cfg.Game.RoundPauseSec = getEnvAsInt("ROUND_PAUSE_SEC", cfg.Game.RoundPauseSec)
	cfg.Game.BonusSlots = getEnvAsInt("BONUS_SLOTS", cfg.Game.BonusSlots)
	cfg.Game.BonusMultiplier = getEnvAsInt("BONUS_MULTIPLIER", cfg.Game.BonusMultiplier)
	cfg.Game.Welcome = getEnv("WELCOME", cfg.Game.Welcome)

	return cfg, nil
}

// pacing converts the game section into the registry's pacing settings.
func (c *Config) pacing() session.Pacing {
	return session.Pacing{
		AnswerWindow:    time.Duration(c.Game.AnswerWindowSec) * time.Second,
		RoundPause:      time.Duration(c.Game.RoundPauseSec) * time.Second,
		BonusSlots:      c.Game.BonusSlots,
		BonusMultiplier: c.Game.BonusMultiplier,
		Welcome:         c.Game.Welcome,
	}
}
