package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
