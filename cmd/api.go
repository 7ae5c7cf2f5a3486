package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/olx/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) writeResponse(body []byte, isJSON bool, data any, compact bool) error {
	if isJSON {
		return r.writeJSON(data, !compact)
	}
	r.output.Write(body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIGet makes a direct GET request to the CRM site
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	return r.writeResponse(resp.Body, resp.IsJSON, resp.JSONData, cmd.Bool("json"))
}

// APIPost makes a direct POST request to the CRM site
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	return r.writeResponse(resp.Body, resp.IsJSON, resp.JSONData, false)
}

// APICall invokes a whitelisted method and prints the "message" of its reply.
func (r *Runner) APICall(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}
	method := cmd.StringArg("method")
	if method == "" {
		return fmt.Errorf("%w: method", shared.ErrMissingArgument)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(cmd.String("args")), &args); err != nil {
		return fmt.Errorf("%w: --args must be a JSON object: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("calling method", "method", method)

	var message json.RawMessage
	if err := r.api.Call(ctx, method, args, &message); err != nil {
		return err
	}
	if len(message) == 0 {
		r.writePlain("✓ %s returned no message\n", method)
		return nil
	}

	var data any
	if err := json.Unmarshal(message, &data); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return r.writeJSON(data, true)
}
