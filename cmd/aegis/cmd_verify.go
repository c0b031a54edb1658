// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// verifyCmd submits a claim, URL, or files to the verification endpoint.
//
// # Examples
//
//	aegis verify "The Eiffel Tower was sold for scrap in 2024"
//	aegis verify https://youtube.com/watch?v=abc123
//	aegis verify --context "seen on social media" suspicious.jpg
var verifyCmd = &cobra.Command{
	Use:   "verify [claim, url, or files...]",
	Short: "Verify a claim, link, or media files",
	Args:  cobra.MinimumNArgs(1),
	Run:   runVerifyCommand,
}

func runVerifyCommand(cmd *cobra.Command, args []string) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	var textParts []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && !info.IsDir() {
			if err := attachFile(writer, arg); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to attach %s: %v\n", arg, err)
				os.Exit(1)
			}
			continue
		}
		textParts = append(textParts, arg)
	}

	if len(textParts) > 0 {
		_ = writer.WriteField("text_input", strings.Join(textParts, " "))
	}
	if claimContext != "" {
		_ = writer.WriteField("claim_context", claimContext)
	}
	if claimDate != "" {
		_ = writer.WriteField("claim_date", claimDate)
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/chatbot/verify", &body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if jsonOutput {
		fmt.Println(string(raw))
		if resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		return
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Verification failed: status %d: %s\n", resp.StatusCode, string(raw))
		os.Exit(1)
	}

	var outcome struct {
		Message string `json:"message"`
		Verdict string `json:"verdict"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &outcome); err != nil {
		fmt.Println(string(raw))
		return
	}
	if outcome.Error != "" {
		fmt.Println(outcome.Error)
		return
	}
	fmt.Printf("Verdict: %s\n\n%s\n", outcome.Verdict, outcome.Message)
}

func attachFile(writer *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
