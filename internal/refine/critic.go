package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vampirenirmal/storyweave/internal/agent"
)

// SceneCritic implements Critic against the model backend. Evaluation
// calls force JSON output; improvement calls return revised prose.
type SceneCritic struct {
	client agent.AIClient
}

func NewSceneCritic(client agent.AIClient) *SceneCritic {
	return &SceneCritic{client: client}
}

func (c *SceneCritic) Evaluate(ctx context.Context, text, storyContext string) (Assessment, error) {
	var b strings.Builder
	b.WriteString("Evaluate the scene prose below against a quality rubric.\n")
	b.WriteString("Score each category from 1.0 (ineffective) to 4.0 (masterful): ")
	b.WriteString(strings.Join(Categories, ", "))
	b.WriteString(".\nRespond with JSON: {\"scores\": {<category>: <score>}, \"feedback\": \"<specific, actionable feedback>\"}\n\n")
	b.WriteString("## Story context\n")
	b.WriteString(storyContext)
	b.WriteString("\n\n## Scene prose\n")
	b.WriteString(text)

	response, err := c.client.CompleteJSON(ctx, b.String())
	if err != nil {
		return Assessment{}, fmt.Errorf("evaluation call: %w", err)
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(cleanJSON(response)), &assessment); err != nil {
		return Assessment{}, fmt.Errorf("parsing evaluation: %w", err)
	}
	for _, category := range Categories {
		score, ok := assessment.Scores[category]
		if !ok {
			return Assessment{}, fmt.Errorf("evaluation missing category %q", category)
		}
		if score < 1.0 || score > 4.0 {
			return Assessment{}, fmt.Errorf("category %q score %.2f outside [1.0, 4.0]", category, score)
		}
	}
	return assessment, nil
}

func (c *SceneCritic) Improve(ctx context.Context, text, feedback, storyContext string) (string, error) {
	var b strings.Builder
	b.WriteString("Revise the scene prose below to address the evaluation feedback.\n")
	b.WriteString("Keep the scene's events, characters, and setting; improve the craft.\n")
	b.WriteString("Respond with the revised prose only.\n\n")
	b.WriteString("## Story context\n")
	b.WriteString(storyContext)
	b.WriteString("\n\n## Feedback\n")
	b.WriteString(feedback)
	b.WriteString("\n\n## Scene prose\n")
	b.WriteString(text)

	revised, err := c.client.Complete(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("improvement call: %w", err)
	}
	return strings.TrimSpace(revised), nil
}

func cleanJSON(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		response = response[start : end+1]
	}
	return strings.TrimSpace(response)
}
