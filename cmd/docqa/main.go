// Command docqa is the entry point for the document question-answering
// service. It provides a CLI (via Cobra) for one-shot queries and local
// ingestion, plus an HTTP server exposing the full REST API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/docstack/docqa/cmd/docqa/commands"
)

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
