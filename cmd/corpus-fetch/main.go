package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	loadDotenv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotenv pulls credential and tuning overrides from a local .env file
// before flags are parsed, preferring .env.local over .env like the
// cli tooling this command's shape is borrowed from. Absence of either
// file is not an error; a malformed one is reported and ignored.
func loadDotenv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", name, err)
		}
		return
	}
}
