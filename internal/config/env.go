package config

import (
	"os"
	"strconv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEADSCRAPER_"

// ApplyEnv overrides fields with LEADSCRAPER_* environment variables.
// Unset or unparseable variables leave the field unchanged. DATABASE_URL is
// honoured when LEADSCRAPER_DATABASE_URL is not set.
func (c *Config) ApplyEnv() {
	c.SearchURL = getEnvString(EnvPrefix+"SEARCH_URL", c.SearchURL)
	c.MaxPages = getEnvInt(EnvPrefix+"MAX_PAGES", c.MaxPages)
	c.StoreBackend = getEnvString(EnvPrefix+"STORE_BACKEND", c.StoreBackend)
	c.SQLitePath = getEnvString(EnvPrefix+"SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnvString(EnvPrefix+"DATABASE_URL", getEnvString("DATABASE_URL", c.DatabaseURL))
	c.StoreKey = getEnvString(EnvPrefix+"STORE_KEY", c.StoreKey)
	c.Headless = getEnvBool(EnvPrefix+"HEADLESS", c.Headless)
	c.ChromePath = getEnvString(EnvPrefix+"CHROME_PATH", c.ChromePath)
	c.UserDataDir = getEnvString(EnvPrefix+"USER_DATA_DIR", c.UserDataDir)
	c.NavRate = getEnvFloat(EnvPrefix+"NAV_RATE_PER_SEC", c.NavRate)
	c.NavBurst = getEnvInt(EnvPrefix+"NAV_BURST", c.NavBurst)
	c.DataDir = getEnvString(EnvPrefix+"DATA_DIR", c.DataDir)
	c.OutDir = getEnvString(EnvPrefix+"OUT_DIR", c.OutDir)
	c.Port = getEnvInt(EnvPrefix+"PORT", c.Port)
	c.Verbose = getEnvBool(EnvPrefix+"VERBOSE", c.Verbose)
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as a float with a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
