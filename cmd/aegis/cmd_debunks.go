// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var debunksLimit int

var debunksCmd = &cobra.Command{
	Use:   "debunks",
	Short: "List recently published debunks",
	Run:   runDebunksCommand,
}

func init() {
	debunksCmd.Flags().IntVar(&debunksLimit, "limit", 10, "Maximum posts to list")
}

func runDebunksCommand(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(fmt.Sprintf("%s/debunks?limit=%d", serverURL, debunksLimit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned status %d: %s\n", resp.StatusCode, string(raw))
		os.Exit(1)
	}
	if jsonOutput {
		fmt.Println(string(raw))
		return
	}

	var parsed struct {
		Posts []struct {
			Title   string `json:"title"`
			Claim   string `json:"claim"`
			Verdict string `json:"verdict"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		fmt.Println(string(raw))
		return
	}
	if len(parsed.Posts) == 0 {
		fmt.Println("No debunks published yet.")
		return
	}
	for _, post := range parsed.Posts {
		fmt.Printf("[%s] %s\n    %s\n", post.Verdict, post.Title, post.Claim)
	}
}
