// Package config loads server settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the race server.
type Config struct {
	Port              string `yaml:"port"`
	CountdownMs       int    `yaml:"countdown_ms"`
	MaxRoomPlayers    int    `yaml:"max_room_players"`
	MaxScores         int    `yaml:"max_scores"`
	ScoreboardDB      string `yaml:"scoreboard_db"`
	LogLevel          string `yaml:"log_level"`
	MaxBatchChars     int    `yaml:"max_batch_chars"`
	MinCharIntervalMs int    `yaml:"min_char_interval_ms"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Port:              "8080",
		CountdownMs:       5000,
		MaxRoomPlayers:    8,
		MaxScores:         10,
		LogLevel:          "info",
		MaxBatchChars:     6,
		MinCharIntervalMs: 35,
	}
}

// Load reads the YAML file at path when given, then applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.CountdownMs = getEnvAsInt("COUNTDOWN_MS", cfg.CountdownMs)
	cfg.MaxRoomPlayers = getEnvAsInt("MAX_ROOM_PLAYERS", cfg.MaxRoomPlayers)
	cfg.MaxScores = getEnvAsInt("MAX_SCORES", cfg.MaxScores)
	cfg.ScoreboardDB = getEnv("SCOREBOARD_DB", cfg.ScoreboardDB)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MaxBatchChars = getEnvAsInt("MAX_BATCH_CHARS", cfg.MaxBatchChars)
	cfg.MinCharIntervalMs = getEnvAsInt("MIN_CHAR_INTERVAL_MS", cfg.MinCharIntervalMs)

	return cfg, nil
}

// Countdown returns the countdown as a duration.
func (c Config) Countdown() time.Duration {
	return time.Duration(c.CountdownMs) * time.Millisecond
}

// MinCharInterval returns the anti-cheat pace floor as a duration.
func (c Config) MinCharInterval() time.Duration {
	return time.Duration(c.MinCharIntervalMs) * time.Millisecond
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
