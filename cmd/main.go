package main

// Main entry point of the application
// Executes the Cobra root command

import (
	"fmt"
	"os"

	"smartmoney-bot/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
