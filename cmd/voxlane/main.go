// Package main provides the entry point for the voxlane voice-agent workflow
// server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voxlane",
	Short: "Voxlane voice-agent workflow engine",
	Long:  "Voxlane turns a business website into a deployed AI voice agent: it classifies the business, extracts a knowledge base, gates deployment on human validation and provisions the voice profile and phone number.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
