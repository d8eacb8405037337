// Package refine runs the bounded evaluate-improve cycle for scene
// prose against the quality rubric.
package refine

import (
	"context"
	"fmt"
	"log/slog"
)

// PassThreshold is the "Effective" acceptance gate: overall scores at
// or above it pass (ties at exactly 3.0 pass).
const PassThreshold = 3.0

// Rubric categories. Scores are rationals in [1.0, 4.0].
var Categories = []string{"plot", "character", "pacing", "prose", "world_building"}

// Assessment is one evaluation call's result.
type Assessment struct {
	Scores   map[string]float64 `json:"scores"`
	Feedback string             `json:"feedback"`
}

// Overall returns the mean of the category scores.
func (a Assessment) Overall() float64 {
	if len(a.Scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range a.Scores {
		sum += s
	}
	return sum / float64(len(a.Scores))
}

// Critic produces rubric assessments and feedback-conditioned
// revisions. Implemented against the model backend; stubbed in tests.
type Critic interface {
	Evaluate(ctx context.Context, text, storyContext string) (Assessment, error)
	Improve(ctx context.Context, text, feedback, storyContext string) (string, error)
}

// State names the loop's terminal condition.
type State string

const (
	// StateAccepted means the overall score met the threshold and the
	// current text should be persisted.
	StateAccepted State = "accepted"
	// StateExhausted means iterations ran out below threshold.
	StateExhausted State = "exhausted"
)

// Outcome is the loop result. Persist reports whether Text should
// replace the original scene content: true when the threshold was met
// at any point, or when the last revision genuinely changed the text.
// Otherwise the original pre-loop content is kept unchanged, so a
// lower-scoring rewrite never silently degrades acceptable prose.
type Outcome struct {
	State      State
	Text       string
	Persist    bool
	Scores     map[string]float64
	Overall    float64
	Feedback   string
	Iterations int
	Improved   bool
}

// Run executes the refinement loop on original scene text.
// maxIterations is clamped to [1, 3].
func Run(ctx context.Context, critic Critic, original, storyContext string, maxIterations int) (Outcome, error) {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if maxIterations > 3 {
		maxIterations = 3
	}

	logger := slog.Default().With("component", "refine_loop")
	current := original
	improved := false

	var last Assessment
	for iteration := 1; iteration <= maxIterations; iteration++ {
		assessment, err := critic.Evaluate(ctx, current, storyContext)
		if err != nil {
			return Outcome{}, fmt.Errorf("evaluating scene (iteration %d): %w", iteration, err)
		}
		last = assessment
		overall := assessment.Overall()

		logger.Debug("scene evaluated",
			"iteration", iteration,
			"overall", overall,
			"threshold", PassThreshold)

		if overall >= PassThreshold {
			logger.Info("scene accepted",
				"iteration", iteration,
				"overall", overall)
			return Outcome{
				State:      StateAccepted,
				Text:       current,
				Persist:    true,
				Scores:     assessment.Scores,
				Overall:    overall,
				Feedback:   assessment.Feedback,
				Iterations: iteration,
				Improved:   improved,
			}, nil
		}

		if iteration == maxIterations {
			break
		}

		revised, err := critic.Improve(ctx, current, assessment.Feedback, storyContext)
		if err != nil {
			return Outcome{}, fmt.Errorf("improving scene (iteration %d): %w", iteration, err)
		}
		improved = revised != current
		current = revised
	}

	overall := last.Overall()
	logger.Info("scene refinement exhausted",
		"iterations", maxIterations,
		"overall", overall,
		"improved", improved)

	return Outcome{
		State:      StateExhausted,
		Text:       current,
		Persist:    improved,
		Scores:     last.Scores,
		Overall:    overall,
		Feedback:   last.Feedback,
		Iterations: maxIterations,
		Improved:   improved,
	}, nil
}
