package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

var (
	configFile string = getEnv("CONFIG_FILE", "config.json")
)

func readConfig() (*Config, error) {
	// Start from defaults, overlay the file when present, then the environment
	config := Config{
		APIBase:     "http://localhost:8080",
		ListenAddr:  ":8000",
		TokenFile:   "token",
		LoginPerSec: 5,
		LoginBurst:  10,
	}

	// Get config file
	data, err := os.ReadFile(configFile)
	if err == nil {
		// Parse JSON data
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing JSON:%s", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file:%s", err)
	}

	// Environment overrides
	config.APIBase = getEnv("API_BASE", config.APIBase)
	config.ListenAddr = getEnv("LISTEN_ADDR", config.ListenAddr)
	config.TokenFile = getEnv("TOKEN_FILE", config.TokenFile)
	config.AllowedOrigin = getEnv("ALLOWED_ORIGIN", config.AllowedOrigin)

	return &config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s is not an integer: %s", key, value)
	}
	return parsed, nil
}
