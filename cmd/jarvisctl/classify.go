package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd(opts *options) *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify a command without applying it",
		Long: `Send a command to jarvisd and print the interpreted intent.
Nothing is written to the finance or calendar services.

Examples:
  jarvisctl classify "Gastei 50 reais no Uber"
  jarvisctl classify --image receipt.jpg
  jarvisctl classify --timezone America/Sao_Paulo "reunião amanhã às 10"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(opts, args, image)
			if err != nil {
				return err
			}
			data, err := opts.post("/api/jarvis", req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file to classify instead of text")
	return cmd
}

// executeResponse mirrors POST /api/jarvis/execute.
type executeResponse struct {
	Intent   json.RawMessage `json:"intent,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Outcome  struct {
		Success          bool   `json:"success"`
		Message          string `json:"message"`
		AffectedEntityID string `json:"affected_entity_id,omitempty"`
		Kind             string `json:"kind"`
	} `json:"outcome"`
}

func newExecuteCmd(opts *options) *cobra.Command {
	var image, eventsFile string
	cmd := &cobra.Command{
		Use:   "execute [text]",
		Short: "Interpret a command and apply it",
		Long: `Send a command to jarvisd and apply the resulting intent.

Event deletes and updates are resolved against the server's calendar, or
against the events in --events (a JSON array of {id,title,start_time}).

Examples:
  jarvisctl execute "Gastei 50 reais no Uber"
  jarvisctl execute --family fam-1 "cancelar a reunião de amanhã"
  jarvisctl execute --events events.json "mover dentista para sexta"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(opts, args, image)
			if err != nil {
				return err
			}
			if eventsFile != "" {
				events, err := os.ReadFile(eventsFile)
				if err != nil {
					return fmt.Errorf("failed to read events file %s: %w", eventsFile, err)
				}
				if !json.Valid(events) {
					return fmt.Errorf("events file %s is not valid JSON", eventsFile)
				}
				req.Events = events
			}

			data, err := opts.post("/api/jarvis/execute", req)
			if err != nil {
				return err
			}
			if opts.raw {
				return printJSON(cmd.OutOrStdout(), data)
			}

			var resp executeResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Outcome.Message)
			if resp.Outcome.AffectedEntityID != "" {
				fmt.Fprintf(out, "id: %s\n", resp.Outcome.AffectedEntityID)
			}
			if !resp.Outcome.Success {
				return fmt.Errorf("command failed (%s)", resp.Outcome.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file to execute instead of text")
	cmd.Flags().StringVar(&eventsFile, "events", "", "JSON file with candidate events")
	return cmd
}

// buildRequest reads the command from args, or from the image file when
// one is given.
func buildRequest(opts *options, args []string, image string) (jarvisRequest, error) {
	req := jarvisRequest{Context: opts.context()}
	switch {
	case image != "" && len(args) > 0:
		return req, fmt.Errorf("pass either text or --image, not both")
	case image != "":
		payload, err := imageDataURL(image)
		if err != nil {
			return req, err
		}
		req.Type, req.Content = "image", payload
	case len(args) > 0:
		req.Type, req.Content = "text", strings.Join(args, " ")
	default:
		return req, fmt.Errorf("no command given")
	}
	return req, nil
}

// imageDataURL reads path into a base64 data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image %s is empty", path)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s does not look like an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
