// main is the entry point for the crtscope CLI.
package main

import (
	"github.com/crtscope/crtscope/cmd"
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; connection strings may come from the shell.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Command failed", err)
	}
}
