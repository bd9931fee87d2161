package main

import (
	"github.com/joho/godotenv"

	"ragpipe/internal/cli"
)

func main() {
	// Load .env if present (provider API keys).
	_ = godotenv.Load()

	cli.Execute()
}
