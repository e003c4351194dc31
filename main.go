/*
Copyright © 2025 trandvq
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/trandvq/docsense/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; configuration falls back to config.yaml and real
	// environment variables.
	_ = godotenv.Load()
}
