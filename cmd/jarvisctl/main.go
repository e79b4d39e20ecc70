// Package main implements jarvisctl, a CLI for the jarvisd HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	server   string
	timezone string
	family   string
	date     string
	raw      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "jarvisctl",
		Short: "CLI for the jarvisd command service",
		Long: `jarvisctl sends natural-language commands to a running jarvisd server.
It can classify a command without applying it, execute it against the
finance and calendar services, and check server health.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", "http://localhost:9090", "jarvisd server URL")
	flags.StringVar(&opts.timezone, "timezone", "", "IANA time zone of the request (server default when empty)")
	flags.StringVar(&opts.family, "family", "", "family id the command applies to")
	flags.StringVar(&opts.date, "date", "", "current date/time override, RFC 3339 or local")
	flags.BoolVar(&opts.raw, "json", false, "print the raw JSON response")

	root.AddCommand(newClassifyCmd(opts))
	root.AddCommand(newExecuteCmd(opts))
	root.AddCommand(newHealthCmd(opts))
	return root
}

// jarvisRequest mirrors the body accepted by POST /api/jarvis.
type jarvisRequest struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Context *requestContext `json:"context,omitempty"`
	Events  json.RawMessage `json:"events,omitempty"`
}

type requestContext struct {
	CurrentDate string `json:"currentDate,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	FamilyID    string `json:"familyId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (o *options) context() *requestContext {
	if o.date == "" && o.timezone == "" && o.family == "" {
		return nil
	}
	return &requestContext{CurrentDate: o.date, Timezone: o.timezone, FamilyID: o.family}
}

// post sends body to path and returns the response body. Non-200 replies
// are turned into errors carrying the server's message.
func (o *options) post(path string, body any) ([]byte, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := o.server + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// printJSON indents data onto w.
func printJSON(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
