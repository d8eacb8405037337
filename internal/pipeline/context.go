package pipeline

import (
	"fmt"
	"strings"

	"github.com/vampirenirmal/storyweave/internal/model"
	"github.com/vampirenirmal/storyweave/internal/seed"
)

// ContextBundle carries everything a generation call may see: the story
// record, ancestor entities, the characters and settings in scope, the
// prior siblings at the same level, and stage-specific directives.
// Bounding context to ancestors plus prior siblings keeps prompt size
// proportional to depth times breadth, not total story size.
type ContextBundle struct {
	Story      *model.Story
	Part       *model.Part
	Chapter    *model.Chapter
	Characters []*model.Character
	Settings   []*model.Setting
}

func (b *ContextBundle) writeStory(w *strings.Builder) {
	w.WriteString("## Story\n")
	fmt.Fprintf(w, "Title: %s\nGenre: %s\nTone: %s\nMoral framework: %s\nSummary: %s\n",
		b.Story.Title, b.Story.Genre, b.Story.Tone, b.Story.MoralFramework, b.Story.Summary)
}

func (b *ContextBundle) writeCharacters(w *strings.Builder) {
	if len(b.Characters) == 0 {
		return
	}
	w.WriteString("\n## Characters in scope\n")
	for _, c := range b.Characters {
		fmt.Fprintf(w, "- %s (id %s, %s): core trait %s; flaw: %s; goal: %s\n",
			c.Name, c.ID, c.Role, c.CoreTrait, c.InternalFlaw, c.ExternalGoal)
	}
}

func (b *ContextBundle) writeSettings(w *strings.Builder) {
	if len(b.Settings) == 0 {
		return
	}
	w.WriteString("\n## Settings in scope\n")
	for _, s := range b.Settings {
		fmt.Fprintf(w, "- %s (id %s): %s\n", s.Name, s.ID, s.SymbolicMeaning)
	}
}

func (b *ContextBundle) writePart(w *strings.Builder) {
	if b.Part == nil {
		return
	}
	w.WriteString("\n## Current part\n")
	fmt.Fprintf(w, "Part %d: %s\n%s\n", b.Part.OrderIndex, b.Part.Title, b.Part.Summary)
	for _, arc := range b.Part.CharacterArcs {
		fmt.Fprintf(w, "- macro arc for %s: adversity (internal: %s; external: %s) -> virtue: %s -> consequence: %s -> new adversity: %s\n",
			arc.CharacterID, arc.Adversity.Internal, arc.Adversity.External,
			arc.Virtue, arc.Consequence, arc.NewAdversity)
	}
}

func (b *ContextBundle) writeChapter(w *strings.Builder) {
	if b.Chapter == nil {
		return
	}
	c := b.Chapter
	w.WriteString("\n## Current chapter\n")
	fmt.Fprintf(w, "Chapter %d (%s): %s\n%s\n", c.OrderIndex, c.ArcPosition, c.Title, c.Summary)
	arc := c.CharacterArc
	fmt.Fprintf(w, "Micro arc for %s: adversity (internal: %s; external: %s) -> virtue: %s -> consequence: %s -> new adversity: %s\n",
		arc.CharacterID, arc.Adversity.Internal, arc.Adversity.External,
		arc.Virtue, arc.Consequence, arc.NewAdversity)
}

// StoryPrompt asks for the root story record from a premise.
func StoryPrompt(premise string) string {
	var w strings.Builder
	w.WriteString("Create the story record for a long-form narrative from the premise below.\n")
	w.WriteString("Respond with JSON: {\"title\", \"summary\", \"genre\" (fantasy|science_fiction|mystery|romance|thriller|historical|literary|adventure), ")
	w.WriteString("\"tone\" (hopeful|dark|bittersweet|whimsical|solemn|satirical), \"moral_framework\", \"status\": \"writing\"}\n\n")
	w.WriteString("## Premise\n")
	w.WriteString(premise)
	w.WriteString("\n")
	return w.String()
}

// CharacterPrompt asks for one character of a batch. Prior siblings are
// summarized so a concurrent batch still avoids duplicate roles.
func CharacterPrompt(b *ContextBundle, index, total int, siblings []*model.Character) string {
	var w strings.Builder
	fmt.Fprintf(&w, "Create character %d of %d for the story below.\n", index, total)
	w.WriteString("Respond with JSON: {\"name\", \"role\" (protagonist|deuteragonist|tritagonist|antagonist|supporting), ")
	w.WriteString("\"core_trait\" (courage|compassion|honesty|loyalty|perseverance|humility|justice|temperance), \"internal_flaw\", \"external_goal\", ")
	w.WriteString("\"personality\" {traits[], fears[], desires[], quirks[], moral_stance}, \"backstory\" {origin, formative_events[], secrets[]}, ")
	w.WriteString("\"physical_description\" {age, build, features[], distinguishing}, \"voice\" {speech_pattern, vocabulary, catchphrases[]}}\n\n")
	b.writeStory(&w)
	if len(siblings) > 0 {
		w.WriteString("\n## Characters so far\n")
		for _, c := range siblings {
			fmt.Fprintf(&w, "- %s (%s, %s)\n", c.Name, c.Role, c.CoreTrait)
		}
	}
	return w.String()
}

// SettingPrompt asks for one setting of a batch.
func SettingPrompt(b *ContextBundle, index, total int, siblings []*model.Setting) string {
	var w strings.Builder
	fmt.Fprintf(&w, "Create setting %d of %d for the story below.\n", index, total)
	w.WriteString("Each element bundle groups what the setting offers for one phase of the adversity-virtue-consequence cycle.\n")
	w.WriteString("Respond with JSON: {\"name\", \"adversity_elements\" {physical[], social[], symbolic[]}, ")
	w.WriteString("\"virtue_elements\" {physical[], social[], symbolic[]}, \"consequence_elements\" {physical[], social[], symbolic[]}, ")
	w.WriteString("\"sensory_details\" {sights[], sounds[], smells[], textures[]}, \"symbolic_meaning\"}\n\n")
	b.writeStory(&w)
	if len(siblings) > 0 {
		w.WriteString("\n## Settings so far\n")
		for _, s := range siblings {
			fmt.Fprintf(&w, "- %s: %s\n", s.Name, s.SymbolicMeaning)
		}
	}
	return w.String()
}

// PartPrompt asks for the next part, with every prior part summarized
// in order.
func PartPrompt(b *ContextBundle, nextIndex int, siblings []*model.Part) string {
	var w strings.Builder
	fmt.Fprintf(&w, "Create part %d of the story below.\n", nextIndex)
	w.WriteString("Each character arc is one macro pass through the virtue cycle: adversity -> virtue -> consequence -> new adversity.\n")
	w.WriteString("Respond with JSON: {\"title\", \"summary\", ")
	w.WriteString("\"character_arcs\": [{\"character_id\", \"adversity\" {internal, external}, \"virtue\", \"consequence\", \"new_adversity\"}], ")
	w.WriteString("\"setting_ids\": [2-4 setting ids from the settings in scope]}\n\n")
	b.writeStory(&w)
	b.writeCharacters(&w)
	b.writeSettings(&w)
	if len(siblings) > 0 {
		w.WriteString("\n## Prior parts\n")
		for _, p := range siblings {
			fmt.Fprintf(&w, "- Part %d: %s — %s\n", p.OrderIndex, p.Title, p.Summary)
			for _, arc := range p.CharacterArcs {
				fmt.Fprintf(&w, "  - %s ends facing: %s\n", arc.CharacterID, arc.NewAdversity)
			}
		}
	}
	return w.String()
}

// ChapterPrompt asks for the next chapter. Unresolved seeds older than
// the retention window are listed to bias generation toward payoff.
func ChapterPrompt(b *ContextBundle, nextIndex int, siblings []*model.Chapter, unresolved []seed.Planted) string {
	var w strings.Builder
	fmt.Fprintf(&w, "Create chapter %d of the story below.\n", nextIndex)
	w.WriteString("The chapter carries one micro pass through the virtue cycle for a character with a macro arc in the current part.\n")
	w.WriteString("Respond with JSON: {\"title\", \"summary\", ")
	w.WriteString("\"arc_position\" (beginning|middle|climax|resolution), ")
	w.WriteString("\"character_arc\": {\"character_id\", \"adversity\" {internal, external}, \"virtue\", \"consequence\", \"new_adversity\"}, ")
	w.WriteString("\"focus_characters\": [character ids], \"setting_ids\": [subset of the part's setting ids], ")
	w.WriteString("\"seeds_planted\": [{\"id\", \"description\", \"expected_payoff\"}], ")
	w.WriteString("\"seeds_resolved\": [{\"seed_id\", \"payoff_description\"}], ")
	w.WriteString("\"connects_to_previous_chapter\", \"creates_next_adversity\"}\n")
	w.WriteString("Only resolve seeds from the unresolved list below; never resolve a seed planted in this same chapter.\n\n")
	b.writeStory(&w)
	b.writePart(&w)
	b.writeCharacters(&w)
	b.writeSettings(&w)
	if len(siblings) > 0 {
		w.WriteString("\n## Prior chapters\n")
		for _, c := range siblings {
			fmt.Fprintf(&w, "- Chapter %d (%s): %s — leads to: %s\n", c.OrderIndex, c.ArcPosition, c.Title, c.CreatesNextAdversity)
		}
	}
	if len(unresolved) > 0 {
		w.WriteString("\n## Unresolved seeds awaiting payoff\n")
		for _, p := range unresolved {
			fmt.Fprintf(&w, "- %s (planted in chapter %d): %s — expected payoff: %s\n",
				p.Seed.ID, p.ChapterOrder, p.Seed.Description, p.Seed.ExpectedPayoff)
		}
	}
	return w.String()
}

// SceneSummaryPrompt asks for the next scene summary with the expected
// cycle phase passed in.
func SceneSummaryPrompt(b *ContextBundle, nextIndex int, expected model.CyclePhase, siblings []*model.SceneSummary) string {
	var w strings.Builder
	fmt.Fprintf(&w, "Create scene summary %d for the chapter below. The scene's cycle phase must be %q.\n", nextIndex, expected)
	w.WriteString("Respond with JSON: {\"title\", \"summary\", ")
	fmt.Fprintf(&w, "\"cycle_phase\": %q, ", expected)
	w.WriteString("\"emotional_beat\" (tension|relief|wonder|dread|grief|joy|resolve|unease), ")
	w.WriteString("\"character_focus\": [character ids], \"setting_id\" (one of the chapter's setting ids), ")
	w.WriteString("\"sensory_anchors\": [concrete sensory details], \"suggested_length\" (short|medium|long)}\n\n")
	b.writeStory(&w)
	b.writePart(&w)
	b.writeChapter(&w)
	b.writeCharacters(&w)
	b.writeSettings(&w)
	if len(siblings) > 0 {
		w.WriteString("\n## Prior scenes in this chapter\n")
		for _, s := range siblings {
			fmt.Fprintf(&w, "- Scene %d (%s, %s): %s\n", s.OrderIndex, s.CyclePhase, s.EmotionalBeat, s.Title)
		}
	}
	return w.String()
}

// SceneProsePrompt asks for the prose of one planned scene.
func SceneProsePrompt(b *ContextBundle, summary *model.SceneSummary, priorScenes []*model.SceneSummary) string {
	minWords, maxWords := summary.SuggestedLength.WordBand()

	var w strings.Builder
	w.WriteString("Write the prose for the scene planned below. Respond with the prose only, no headings or commentary.\n")
	fmt.Fprintf(&w, "Target length: %d-%d words. Cycle phase %q sets the scene's tone and pacing; land the emotional beat %q.\n\n",
		minWords, maxWords, summary.CyclePhase, summary.EmotionalBeat)
	b.writeStory(&w)
	b.writePart(&w)
	b.writeChapter(&w)
	b.writeCharacters(&w)
	b.writeSettings(&w)
	w.WriteString("\n## Scene plan\n")
	fmt.Fprintf(&w, "Scene %d: %s\n%s\n", summary.OrderIndex, summary.Title, summary.Summary)
	fmt.Fprintf(&w, "Setting: %s\nSensory anchors: %s\n", summary.SettingID, strings.Join(summary.SensoryAnchors, "; "))
	if len(priorScenes) > 0 {
		w.WriteString("\n## Earlier scenes in this chapter\n")
		for _, s := range priorScenes {
			if s.OrderIndex >= summary.OrderIndex {
				continue
			}
			fmt.Fprintf(&w, "- Scene %d (%s): %s\n", s.OrderIndex, s.CyclePhase, s.Summary)
		}
	}
	return w.String()
}

// StoryContext renders the compact story context handed to the
// refinement loop's evaluation and improvement calls.
func StoryContext(b *ContextBundle, summary *model.SceneSummary) string {
	var w strings.Builder
	b.writeStory(&w)
	b.writeChapter(&w)
	w.WriteString("\n## Scene plan\n")
	fmt.Fprintf(&w, "Scene %d (%s, %s): %s\n", summary.OrderIndex, summary.CyclePhase, summary.EmotionalBeat, summary.Summary)
	return w.String()
}
