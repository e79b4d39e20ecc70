package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// healthResponse mirrors GET /health.
type healthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check jarvisd server health",
		Long: `Check the health status of the jarvisd server and which AI
providers it has credentials for.

Examples:
  jarvisctl health
  jarvisctl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd, opts)
		},
	}
}

func runHealth(cmd *cobra.Command, opts *options) error {
	url := opts.server + "/health"
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server Status: %s\n", health.Status)
	fmt.Fprintf(out, "Server URL: %s\n", opts.server)

	names := make([]string, 0, len(health.Providers))
	for name := range health.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "not configured"
		if health.Providers[name] {
			state = "configured"
		}
		fmt.Fprintf(out, "Provider %s: %s\n", name, state)
	}
	return nil
}
