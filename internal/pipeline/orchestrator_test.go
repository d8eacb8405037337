package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vampirenirmal/storyweave/internal/agent"
	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
	"github.com/vampirenirmal/storyweave/internal/refine"
	"github.com/vampirenirmal/storyweave/internal/storage"
)

func newTestOrchestrator(t *testing.T, client agent.AIClient, opts ...Option) (*Orchestrator, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	orch := New(store, agent.NewGenerator(client), opts...)
	return orch, store
}

func seedStory(t *testing.T, store storage.Store) *model.Story {
	t.Helper()
	story := &model.Story{
		ID:             "story-1",
		Title:          "The Lantern Road",
		Summary:        "A courier crosses a blighted kingdom.",
		Genre:          model.GenreFantasy,
		Tone:           model.ToneBittersweet,
		MoralFramework: "hope carried for others",
		Status:         model.StatusWriting,
	}
	if err := store.Insert(context.Background(), story); err != nil {
		t.Fatalf("seeding story: %v", err)
	}
	return story
}

func seedCast(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.Insert(ctx, &model.Character{ID: "char-1", StoryID: "story-1", Name: "Ias Veren"}); err != nil {
		t.Fatalf("seeding character: %v", err)
	}
	for _, id := range []string{"set-1", "set-2"} {
		if err := store.Insert(ctx, &model.Setting{ID: id, StoryID: "story-1", Name: "Setting " + id}); err != nil {
			t.Fatalf("seeding setting %s: %v", id, err)
		}
	}
}

func seedPart(t *testing.T, store storage.Store) *model.Part {
	t.Helper()
	part := &model.Part{
		ID:         "part-1",
		StoryID:    "story-1",
		OrderIndex: 1,
		Title:      "Into the Fen",
		Summary:    "The courier leaves the lowlands.",
		CharacterArcs: []model.ArcCycle{{
			CharacterID:  "char-1",
			Adversity:    model.AdversityPair{Internal: "self-reliance as armor", External: "the drowned causeways"},
			Virtue:       "perseverance",
			Consequence:  "the ferrymen take his side",
			NewAdversity: "the toll gangs mark him",
		}},
		SettingIDs: []string{"set-1", "set-2"},
	}
	if err := store.Insert(context.Background(), part); err != nil {
		t.Fatalf("seeding part: %v", err)
	}
	return part
}

func seedChapter(t *testing.T, store storage.Store, order int, planted []model.Seed) *model.Chapter {
	t.Helper()
	ch := &model.Chapter{
		ID:          fmt.Sprintf("ch-%d", order),
		PartID:      "part-1",
		StoryID:     "story-1",
		OrderIndex:  order,
		Title:       fmt.Sprintf("Chapter %d", order),
		Summary:     "The road narrows.",
		ArcPosition: model.ArcBeginning,
		CharacterArc: model.ArcCycle{
			CharacterID:  "char-1",
			Adversity:    model.AdversityPair{Internal: "doubt", External: "fog"},
			Virtue:       "perseverance",
			Consequence:  "a path found",
			NewAdversity: "the bell is heard",
		},
		FocusCharacters:           []string{"char-1"},
		SettingIDs:                []string{"set-1"},
		SeedsPlanted:              planted,
		ConnectsToPreviousChapter: "picks up at the fen's edge",
		CreatesNextAdversity:      "the toll gang waits at the causeway",
	}
	if err := store.Insert(context.Background(), ch); err != nil {
		t.Fatalf("seeding chapter %d: %v", order, err)
	}
	return ch
}

func TestParseStage(t *testing.T) {
	for _, name := range []string{"story", "characters", "settings", "parts", "chapters", "scene-summaries", "scene-content", "scene-evaluation"} {
		if _, err := ParseStage(name); err != nil {
			t.Errorf("ParseStage(%q) = %v", name, err)
		}
	}
	if _, err := ParseStage("poems"); !errors.Is(err, core.ErrUnknownStage) {
		t.Errorf("ParseStage(poems) = %v, want unknown stage", err)
	}
}

func TestRunStory(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewMockClient())

	result, err := orch.RunStage(context.Background(), StageStory, "", Params{Premise: "a courier carries a lantern"})
	if err != nil {
		t.Fatalf("RunStage(story) = %v", err)
	}
	if len(result.Created) != 1 || len(result.Failed) != 0 {
		t.Fatalf("result = %+v, want exactly one created story", result)
	}

	story := result.Created[0].(*model.Story)
	if story.ID == "" {
		t.Error("created story has no id")
	}
	if story.Status != model.StatusWriting {
		t.Errorf("Status = %s, want writing", story.Status)
	}
	if _, err := store.Get(context.Background(), model.TypeStory, story.ID); err != nil {
		t.Errorf("created story not persisted: %v", err)
	}
}

func TestRunStoryRequiresPremise(t *testing.T) {
	orch, _ := newTestOrchestrator(t, agent.NewMockClient())
	if _, err := orch.RunStage(context.Background(), StageStory, "", Params{}); err == nil {
		t.Fatal("RunStage(story) without premise = nil, want error")
	}
}

func TestCharacterBatch(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewMockClient())
	seedStory(t, store)

	result, err := orch.RunStage(context.Background(), StageCharacters, "story-1", Params{Count: 3})
	if err != nil {
		t.Fatalf("RunStage(characters) = %v", err)
	}
	if len(result.Created) != 3 {
		t.Fatalf("created %d characters, want 3", len(result.Created))
	}

	ids := make(map[string]bool)
	for _, e := range result.Created {
		c := e.(*model.Character)
		if c.StoryID != "story-1" {
			t.Errorf("character StoryID = %s, want story-1", c.StoryID)
		}
		if ids[c.ID] {
			t.Errorf("duplicate character id %s", c.ID)
		}
		ids[c.ID] = true
	}

	persisted, err := store.ListByParent(context.Background(), model.TypeCharacter, "story-1")
	if err != nil {
		t.Fatalf("ListByParent = %v", err)
	}
	if len(persisted) != 3 {
		t.Errorf("persisted %d characters, want 3", len(persisted))
	}
}

func TestBatchRequiresStory(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewMockClient())

	_, err := orch.RunStage(context.Background(), StageCharacters, "story-missing", Params{Count: 2})
	if !errors.Is(err, core.ErrMissingDependency) {
		t.Fatalf("RunStage(characters) = %v, want missing dependency", err)
	}

	persisted, _ := store.ListByParent(context.Background(), model.TypeCharacter, "story-missing")
	if len(persisted) != 0 {
		t.Errorf("persisted %d characters despite stage failure", len(persisted))
	}
}

func TestPartsRequireCast(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewMockClient())
	seedStory(t, store)

	// Story exists but characters and settings do not.
	_, err := orch.RunStage(context.Background(), StageParts, "story-1", Params{})
	if !errors.Is(err, core.ErrMissingDependency) {
		t.Fatalf("RunStage(parts) = %v, want missing dependency", err)
	}
	parts, _ := store.ListByParent(context.Background(), model.TypePart, "story-1")
	if len(parts) != 0 {
		t.Errorf("persisted %d parts despite stage failure", len(parts))
	}
}

const scriptedPartJSON = `{
	"title": "Into the Fen",
	"summary": "The courier leaves the lowlands and learns the fen's rules.",
	"character_arcs": [{
		"character_id": "char-1",
		"adversity": {"internal": "self-reliance as armor", "external": "the drowned causeways"},
		"virtue": "perseverance",
		"consequence": "the ferrymen take his side",
		"new_adversity": "the toll gangs mark him"
	}],
	"setting_ids": ["set-1", "set-2"]
}`

func TestRunNextPart(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(scriptedPartJSON))
	seedStory(t, store)
	seedCast(t, store)

	result, err := orch.RunStage(context.Background(), StageParts, "story-1", Params{})
	if err != nil {
		t.Fatalf("RunStage(parts) = %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("created %d parts, want 1", len(result.Created))
	}
	part := result.Created[0].(*model.Part)
	if part.OrderIndex != 1 {
		t.Errorf("OrderIndex = %d, want 1", part.OrderIndex)
	}
	if part.ID == "" {
		t.Error("part has no id")
	}
}

func TestRunNextPartRejectsUnknownSetting(t *testing.T) {
	bad := `{
		"title": "t", "summary": "s",
		"character_arcs": [{
			"character_id": "char-1",
			"adversity": {"internal": "a", "external": "b"},
			"virtue": "v", "consequence": "c", "new_adversity": "n"
		}],
		"setting_ids": ["set-1", "set-99"]
	}`
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(bad))
	seedStory(t, store)
	seedCast(t, store)

	result, err := orch.RunStage(context.Background(), StageParts, "story-1", Params{})
	if err != nil {
		t.Fatalf("RunStage(parts) = %v", err)
	}
	if len(result.Failed) != 1 || len(result.Created) != 0 {
		t.Fatalf("result = %+v, want one failed unit and nothing created", result)
	}
	parts, _ := store.ListByParent(context.Background(), model.TypePart, "story-1")
	if len(parts) != 0 {
		t.Errorf("persisted %d parts despite contract violation", len(parts))
	}
}

func chapterJSON(order int, resolved string) string {
	resolvedJSON := "[]"
	if resolved != "" {
		resolvedJSON = fmt.Sprintf(`[{"seed_id": %q, "payoff_description": "the bell rings at last"}]`, resolved)
	}
	return fmt.Sprintf(`{
		"title": "Chapter %d", "summary": "The road narrows.",
		"arc_position": "beginning",
		"character_arc": {
			"character_id": "char-1",
			"adversity": {"internal": "doubt", "external": "fog"},
			"virtue": "perseverance", "consequence": "a path found", "new_adversity": "the bell is heard"
		},
		"focus_characters": ["char-1"], "setting_ids": ["set-1"],
		"seeds_planted": [], "seeds_resolved": %s,
		"connects_to_previous_chapter": "picks up at the fen's edge",
		"creates_next_adversity": "the toll gang waits"
	}`, order, resolvedJSON)
}

func TestRunNextChapter(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(chapterJSON(2, "seed-bell")))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, []model.Seed{{ID: "seed-bell", Description: "a silent bell", ExpectedPayoff: "it rings"}})

	result, err := orch.RunStage(context.Background(), StageChapters, "story-1", Params{PartID: "part-1"})
	if err != nil {
		t.Fatalf("RunStage(chapters) = %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("result = %+v, want one created chapter", result)
	}
	ch := result.Created[0].(*model.Chapter)
	if ch.OrderIndex != 2 {
		t.Errorf("OrderIndex = %d, want 2", ch.OrderIndex)
	}
	if len(ch.SeedsResolved) != 1 || ch.SeedsResolved[0].SeedID != "seed-bell" {
		t.Errorf("SeedsResolved = %+v, want seed-bell paid off", ch.SeedsResolved)
	}
}

func TestRunNextChapterRejectsDanglingSeed(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(chapterJSON(2, "seed-ghost")))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, nil)

	result, err := orch.RunStage(context.Background(), StageChapters, "story-1", Params{PartID: "part-1"})
	if err != nil {
		t.Fatalf("RunStage(chapters) = %v", err)
	}
	if len(result.Failed) != 1 || len(result.Created) != 0 {
		t.Fatalf("result = %+v, want one failed unit", result)
	}

	chapters, _ := store.ListByParent(context.Background(), model.TypeChapter, "part-1")
	if len(chapters) != 1 {
		t.Errorf("chapter count = %d, want the pre-seeded 1 only", len(chapters))
	}
}

func sceneSummaryJSON(order int, phase model.CyclePhase) string {
	return fmt.Sprintf(`{
		"title": "Scene %d", "summary": "Fog closes over the causeway.",
		"cycle_phase": %q, "emotional_beat": "unease",
		"character_focus": ["char-1"], "setting_id": "set-1",
		"sensory_anchors": ["bell nets clinking"], "suggested_length": "medium"
	}`, order, phase)
}

func TestRunNextSceneSummary(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(sceneSummaryJSON(1, model.PhaseSetup)))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, nil)

	result, err := orch.RunStage(context.Background(), StageSceneSummaries, "story-1", Params{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("RunStage(scene-summaries) = %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("result = %+v, want one created scene summary", result)
	}
	scene := result.Created[0].(*model.SceneSummary)
	if scene.CyclePhase != model.PhaseSetup {
		t.Errorf("CyclePhase = %s, want setup", scene.CyclePhase)
	}
}

func TestRunNextSceneSummaryRejectsPhaseMismatch(t *testing.T) {
	// First scene of a chapter must be setup.
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(sceneSummaryJSON(1, model.PhaseVirtue)))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, nil)

	result, err := orch.RunStage(context.Background(), StageSceneSummaries, "story-1", Params{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("RunStage(scene-summaries) = %v", err)
	}
	if len(result.Failed) != 1 || len(result.Created) != 0 {
		t.Fatalf("result = %+v, want one failed unit", result)
	}
}

func seedSceneSummary(t *testing.T, store storage.Store) *model.SceneSummary {
	t.Helper()
	s := &model.SceneSummary{
		ID: "ss-1", ChapterID: "ch-1", StoryID: "story-1", OrderIndex: 1,
		Title: "Scene 1", Summary: "Fog closes over the causeway.",
		CyclePhase: model.PhaseSetup, EmotionalBeat: model.BeatUnease,
		CharacterFocus: []string{"char-1"}, SettingID: "set-1",
		SensoryAnchors:  []string{"bell nets clinking"},
		SuggestedLength: model.LengthMedium,
	}
	if err := store.Insert(context.Background(), s); err != nil {
		t.Fatalf("seeding scene summary: %v", err)
	}
	return s
}

func TestRunNextSceneContent(t *testing.T) {
	prose := "The fen held its breath while Ias counted his steps across the causeway."
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(prose))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, nil)
	seedSceneSummary(t, store)

	result, err := orch.RunStage(context.Background(), StageSceneContent, "story-1", Params{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("RunStage(scene-content) = %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("result = %+v, want one created scene content", result)
	}
	content := result.Created[0].(*model.SceneContent)
	if content.Text != prose {
		t.Errorf("Text = %q, want scripted prose", content.Text)
	}
	if content.WordCount != 13 {
		t.Errorf("WordCount = %d, want 13", content.WordCount)
	}
	if content.SceneSummaryID != "ss-1" {
		t.Errorf("SceneSummaryID = %s, want ss-1", content.SceneSummaryID)
	}

	// A second call finds nothing left to write.
	again, err := orch.RunStage(context.Background(), StageSceneContent, "story-1", Params{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("second RunStage(scene-content) = %v", err)
	}
	if len(again.Created) != 0 || len(again.Failed) != 0 {
		t.Errorf("second call result = %+v, want empty", again)
	}
}

// scriptedCritic satisfies refine.Critic with fixed scores.
type scriptedCritic struct {
	overall float64
	revised string
}

func (c *scriptedCritic) Evaluate(ctx context.Context, text, storyContext string) (refine.Assessment, error) {
	scores := make(map[string]float64, len(refine.Categories))
	for _, cat := range refine.Categories {
		scores[cat] = c.overall
	}
	return refine.Assessment{Scores: scores, Feedback: "land the beat earlier"}, nil
}

func (c *scriptedCritic) Improve(ctx context.Context, text, feedback, storyContext string) (string, error) {
	if c.revised == "" {
		return text, nil
	}
	return c.revised, nil
}

func TestRunNextSceneEvaluation(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewScriptedClient(),
		WithCritic(&scriptedCritic{overall: 3.5}))
	seedStory(t, store)
	seedCast(t, store)
	seedPart(t, store)
	seedChapter(t, store, 1, nil)
	seedSceneSummary(t, store)

	content := &model.SceneContent{
		ID: "sc-1", SceneSummaryID: "ss-1", StoryID: "story-1",
		OrderIndex: 1, Text: "draft prose for the causeway crossing", WordCount: 6,
	}
	if err := store.Insert(context.Background(), content); err != nil {
		t.Fatalf("seeding scene content: %v", err)
	}

	result, err := orch.RunStage(context.Background(), StageSceneEvaluation, "story-1", Params{ChapterID: "ch-1", MaxIterations: 2})
	if err != nil {
		t.Fatalf("RunStage(scene-evaluation) = %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("result = %+v, want one evaluated scene", result)
	}

	got, err := store.Get(context.Background(), model.TypeSceneContent, "sc-1")
	if err != nil {
		t.Fatalf("Get(sc-1) = %v", err)
	}
	loaded := got.(*model.SceneContent)
	if loaded.Evaluation == nil {
		t.Fatal("evaluation record missing after stage")
	}
	if loaded.Evaluation.Overall != 3.5 {
		t.Errorf("Overall = %v, want 3.5", loaded.Evaluation.Overall)
	}
	if loaded.Text != content.Text {
		t.Errorf("passing scene's text changed: %q", loaded.Text)
	}

	// Once evaluated, the stage has nothing left in this chapter.
	again, err := orch.RunStage(context.Background(), StageSceneEvaluation, "story-1", Params{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("second RunStage(scene-evaluation) = %v", err)
	}
	if len(again.Created) != 0 {
		t.Errorf("second call result = %+v, want empty", again)
	}
}

func TestResetStory(t *testing.T) {
	orch, store := newTestOrchestrator(t, agent.NewMockClient())
	seedStory(t, store)
	seedCast(t, store)

	if err := orch.ResetStory(context.Background(), "story-1"); err != nil {
		t.Fatalf("ResetStory() = %v", err)
	}
	if _, err := store.Get(context.Background(), model.TypeStory, "story-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("story survived reset: %v", err)
	}
	chars, _ := store.ListByParent(context.Background(), model.TypeCharacter, "story-1")
	if len(chars) != 0 {
		t.Errorf("%d characters survived reset", len(chars))
	}
}
