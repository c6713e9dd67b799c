package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; values already present in the process environment win.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads KEY=VALUE pairs from the supported dotenv files that exist.
// Existing process environment variables are not overwritten.
func loadEnvFiles() error {
	var found []string
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		found = append(found, path)
	}
	if len(found) == 0 {
		return errors.New("no .env file found")
	}
	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("load %v: %w", found, err)
	}
	fmt.Fprintf(os.Stderr, "Loaded environment variables from %v\n", found)
	return nil
}
