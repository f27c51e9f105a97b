// Command cinema-client submits render requests to a running cinema-service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Flag descriptions.
const (
	flagServiceDesc    = "Base URL of the cinema-service"
	flagRequestDesc    = "JSON file containing the request payload to submit"
	flagScriptDesc     = "Text file containing a screenplay to render"
	flagResolutionDesc = "Output resolution for script renders (480p, 540p, 720p, 1080p, 4k)"
	flagFPSDesc        = "Output frame rate for script renders"
	flagHealthDesc     = "Check service health and exit"
	flagTimeoutDesc    = "Request timeout in minutes"
)

// Flag names.
const (
	flagService    = "service"
	flagRequest    = "request"
	flagScript     = "script"
	flagResolution = "resolution"
	flagFPS        = "fps"
	flagHealth     = "health"
	flagTimeout    = "timeout"
)

// Error and log messages.
const (
	errEitherRequestOrScript = "either --request or --script must be provided"
	errCannotSpecifyBoth     = "cannot specify both --request and --script"
	errServiceNotHealthy     = "service is not healthy: %v"
	msgServiceHealthy        = "service is healthy"
)

// Defaults.
const (
	defaultServiceURL     = "http://localhost:8080"
	defaultTimeoutMinutes = 30
	healthTimeout         = 10 * time.Second
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	service    string
	request    string
	script     string
	resolution string
	fps        int
	health     bool
	timeout    int
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.health {
		return checkHealth(flags.service)
	}

	payload, err := buildPayload(flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(flags.timeout)*time.Minute)
	defer cancel()

	response, err := submit(ctx, flags.service, payload)
	if err != nil {
		return err
	}

	fmt.Println(response)

	return nil
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.service, flagService, defaultServiceURL, flagServiceDesc)
	flag.StringVar(&flags.request, flagRequest, "", flagRequestDesc)
	flag.StringVar(&flags.script, flagScript, "", flagScriptDesc)
	flag.StringVar(&flags.resolution, flagResolution, "", flagResolutionDesc)
	flag.IntVar(&flags.fps, flagFPS, 0, flagFPSDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.IntVar(&flags.timeout, flagTimeout, defaultTimeoutMinutes, flagTimeoutDesc)
	flag.Parse()

	return flags
}

// buildPayload assembles the inner request payload from the flags. A payload
// file is used verbatim; a script file becomes a script_to_video request.
func buildPayload(flags appFlags) (json.RawMessage, error) {
	if flags.request == "" && flags.script == "" {
		flag.Usage()

		return nil, errors.New(errEitherRequestOrScript)
	}

	if flags.request != "" && flags.script != "" {
		return nil, errors.New(errCannotSpecifyBoth)
	}

	if flags.request != "" {
		data, err := os.ReadFile(flags.request)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}

		return data, nil
	}

	scriptText, err := os.ReadFile(flags.script)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	payload := map[string]any{
		"type":   "script_to_video",
		"script": string(scriptText),
	}

	if flags.resolution != "" {
		payload["resolution"] = flags.resolution
	}

	if flags.fps > 0 {
		payload["fps"] = flags.fps
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	return data, nil
}

// submit wraps the payload in the request envelope, posts it and returns the
// pretty-printed response body.
func submit(ctx context.Context, serviceURL string, payload json.RawMessage) (string, error) {
	envelope, err := json.Marshal(map[string]json.RawMessage{"input": payload})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		serviceURL+"/run", bytes.NewReader(envelope))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var pretty bytes.Buffer

	err = json.Indent(&pretty, body, "", "  ")
	if err != nil {
		// Non-JSON bodies are printed raw.
		return "HTTP " + strconv.Itoa(resp.StatusCode) + ": " + string(body), nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service returned HTTP %d:\n%s", resp.StatusCode, pretty.String())
	}

	return pretty.String(), nil
}

// checkHealth probes the liveness endpoint.
func checkHealth(serviceURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errServiceNotHealthy, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errServiceNotHealthy, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	fmt.Println(msgServiceHealthy)

	return nil
}
