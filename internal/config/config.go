/*
 * This file is part of Guest List Planner (https://github.com/atssj/prj-guest-list-planner).
 * Copyright (C) 2025 Guest List Planner contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the guest planner service
type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	NATS      NATSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ExtractorConfig holds guest-info extraction configuration
type ExtractorConfig struct {
	GeminiAPIKey string        // API key for the Gemini backend
	GeminiModel  string        // Model name (e.g., "gemini-2.0-flash")
	Timeout      time.Duration // Per-request extraction timeout
	ReflexFirst  bool          // Try local reflex parsing before calling the model
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("GUESTPLANNER_HOST", "0.0.0.0"),
			Port:         getEnvInt("GUESTPLANNER_PORT", 8080),
			ReadTimeout:  getEnvDuration("GUESTPLANNER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("GUESTPLANNER_WRITE_TIMEOUT", 30*time.Second),
		},
		Extractor: ExtractorConfig{
			GeminiAPIKey: getEnvString("GEMINI_API_KEY", ""),
			GeminiModel:  getEnvString("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:      getEnvDuration("EXTRACTOR_TIMEOUT", 15*time.Second),
			ReflexFirst:  getEnvBool("EXTRACTOR_REFLEX_FIRST", true),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("GUESTPLANNER_DB_PATH", "./data/guestplanner.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Extractor.GeminiModel == "" {
		return fmt.Errorf("Gemini model must be provided")
	}

	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("extractor timeout must be positive: %v", c.Extractor.Timeout)
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("database path must be provided")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
