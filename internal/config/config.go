package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultDriver = "sqlite"
	DefaultDBPath = "estudiantes.db"
	DefaultAddr   = "127.0.0.1:8080"
)

type Config struct {
	DBDriver string // "sqlite" or "postgres"
	DBPath   string
	DBDSN    string
	HTTPAddr string
	LogSQL   bool
}

// Load reads envFile (if present) into the process environment and builds a
// Config from it. A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg := Config{
		DBDriver: getEnv("DB_DRIVER", DefaultDriver),
		DBPath:   getEnv("DB_PATH", DefaultDBPath),
		DBDSN:    os.Getenv("DB_DSN"),
		HTTPAddr: getEnv("HTTP_ADDR", DefaultAddr),
	}

	if v := os.Getenv("LOG_SQL"); v != "" {
		logSQL, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.New("LOG_SQL must be a boolean")
		}
		cfg.LogSQL = logSQL
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return Config{}, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.DBDriver == "postgres" && cfg.DBDSN == "" {
		return Config{}, errors.New("DB_DSN is required for the postgres driver")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
