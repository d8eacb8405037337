package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// Generator is the structured generation adapter: one call from a
// prompt to a validated typed record. The model backend is a black box
// behind AIClient; the adapter owns response cleanup, decoding, and
// schema validation.
type Generator struct {
	client AIClient
	logger *slog.Logger
}

func NewGenerator(client AIClient) *Generator {
	return &Generator{
		client: client,
		logger: slog.Default().With("component", "generator"),
	}
}

// Generate runs one structured generation call. out must be a pointer
// to the expected entity record; any decode or validation failure
// surfaces as a SchemaError so the caller can retry the unit.
func (g *Generator) Generate(ctx context.Context, prompt string, out model.Entity) error {
	g.logger.Debug("structured generation call",
		"entity", string(out.EntityType()),
		"prompt_length", len(prompt))

	response, err := g.client.CompleteJSON(ctx, prompt)
	if err != nil {
		return fmt.Errorf("calling model backend: %w", err)
	}

	cleaned := cleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		g.logger.Warn("generation output is not valid JSON",
			"entity", string(out.EntityType()),
			"response_preview", preview(response, 300),
			"error", err)
		return &core.SchemaError{Entity: string(out.EntityType()), Cause: err}
	}

	if err := model.Validate(out); err != nil {
		g.logger.Warn("generation output failed schema validation",
			"entity", string(out.EntityType()),
			"error", err)
		return err
	}

	g.logger.Debug("structured generation succeeded",
		"entity", string(out.EntityType()),
		"response_length", len(response))
	return nil
}

// GenerateRaw runs one unstructured generation call, used for scene
// prose where the output is plain text.
func (g *Generator) GenerateRaw(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("calling model backend: %w", err)
	}
	return response, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
