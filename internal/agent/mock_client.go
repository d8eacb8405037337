package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MockClient provides fake model responses for testing and demos,
// keyed by what the prompt asks for.
type MockClient struct {
	responses map[string]string
}

func NewMockClient() *MockClient {
	return &MockClient{
		responses: map[string]string{
			"story": `{
				"title": "The Lantern Road",
				"summary": "A courier crosses a blighted kingdom carrying a light that must not go out.",
				"genre": "fantasy",
				"tone": "bittersweet",
				"moral_framework": "Courage means carrying hope for people who cannot carry it themselves.",
				"status": "writing"
			}`,
			"character": `{
				"name": "Ias Veren",
				"role": "protagonist",
				"core_trait": "perseverance",
				"internal_flaw": "Believes asking for help is a debt he can never repay.",
				"external_goal": "Deliver the lantern to the mountain shrine before winter.",
				"personality": {
					"traits": ["stubborn", "observant"],
					"fears": ["being a burden"],
					"desires": ["to matter to someone"],
					"quirks": ["counts his steps aloud"],
					"moral_stance": "Keeps promises even when they stop making sense."
				},
				"backstory": {
					"origin": "Orphaned in the lowland floods.",
					"formative_events": ["Watched the last lamplighter die at his post."],
					"secrets": ["He has never seen the shrine he swore to reach."]
				},
				"physical_description": {
					"age": "26",
					"build": "wiry",
					"features": ["wind-burned face", "rope-scarred hands"],
					"distinguishing": "A pale streak in his hair from the flood water."
				},
				"voice": {
					"speech_pattern": "short, practical sentences",
					"vocabulary": "plain, trade-road slang",
					"catchphrases": ["One more mile."]
				}
			}`,
			"setting": `{
				"name": "The Ash Fen",
				"adversity_elements": {
					"physical": ["sinking paths", "cold fog"],
					"social": ["toll gangs at every causeway"],
					"symbolic": ["a drowned bell tower"]
				},
				"virtue_elements": {
					"physical": ["firm ground near the old shrines"],
					"social": ["ferrymen who remember the old courtesies"],
					"symbolic": ["herons rising at dawn"]
				},
				"consequence_elements": {
					"physical": ["paths that reopen when the bell is rung"],
					"social": ["a toll gang that stands aside"],
					"symbolic": ["fog thinning over the water"]
				},
				"sensory_details": {
					"sights": ["grey water", "reed shadows"],
					"sounds": ["bell nets clinking", "bitterns booming"],
					"smells": ["peat smoke"],
					"textures": ["wet rope"]
				},
				"symbolic_meaning": "What was drowned is not gone."
			}`,
		},
	}
}

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	promptLower := strings.ToLower(prompt)

	switch {
	case strings.Contains(promptLower, "character"):
		return m.responses["character"], nil
	case strings.Contains(promptLower, "setting"):
		return m.responses["setting"], nil
	case strings.Contains(promptLower, "story"):
		return m.responses["story"], nil
	}

	return `{"message": "mock response"}`, nil
}

func (m *MockClient) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	response, err := m.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	var test interface{}
	if err := json.Unmarshal([]byte(response), &test); err != nil {
		return "", fmt.Errorf("mock response is not valid JSON: %w", err)
	}
	return response, nil
}

// ScriptedClient returns queued responses in order, so tests can drive
// multi-call flows (incremental stages, refinement score sequences)
// deterministically.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

// Push appends more responses to the script.
func (s *ScriptedClient) Push(responses ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, responses...)
}

// Calls reports how many completions have been served.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *ScriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("scripted client exhausted after %d calls", s.calls)
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *ScriptedClient) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return s.Complete(ctx, prompt)
}
