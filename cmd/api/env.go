package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envFileVar names the variable that points at an alternative dotenv file.
const envFileVar = "CALCULATOR_ENV_FILE"

// loadDotEnv loads environment variables from .env (or $CALCULATOR_ENV_FILE)
// when present. Existing process environment variables are not overridden.
func loadDotEnv() error {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}
