// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL    string
	claimContext string
	claimDate    string
	jsonOutput   bool

	rootCmd = &cobra.Command{
		Use:   "aegis",
		Short: "A cli for the Aegis content verification service",
		Long: `Aegis checks claims, images, videos, and links against
fact-check sources and media analysis backends.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(),
		"Base URL of the verification server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print raw JSON responses")

	verifyCmd.Flags().StringVar(&claimContext, "context", "",
		"Where the claim was seen")
	verifyCmd.Flags().StringVar(&claimDate, "date", "",
		"Date the claim refers to")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(debunksCmd)
}

func defaultServerURL() string {
	if v := os.Getenv("AEGIS_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}
