// Package pipeline drives the dependency-ordered generation stages:
// story -> characters -> settings -> parts -> chapters -> scene
// summaries -> scene content -> scene evaluation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/storyweave/internal/agent"
	"github.com/vampirenirmal/storyweave/internal/config"
	"github.com/vampirenirmal/storyweave/internal/contract"
	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
	"github.com/vampirenirmal/storyweave/internal/refine"
	"github.com/vampirenirmal/storyweave/internal/seed"
	"github.com/vampirenirmal/storyweave/internal/storage"
)

// Stage names one pipeline stage.
type Stage string

const (
	StageStory           Stage = "story"
	StageCharacters      Stage = "characters"
	StageSettings        Stage = "settings"
	StageParts           Stage = "parts"
	StageChapters        Stage = "chapters"
	StageSceneSummaries  Stage = "scene-summaries"
	StageSceneContent    Stage = "scene-content"
	StageSceneEvaluation Stage = "scene-evaluation"
)

// ParseStage resolves a stage name or returns core.ErrUnknownStage.
func ParseStage(name string) (Stage, error) {
	switch Stage(name) {
	case StageStory, StageCharacters, StageSettings, StageParts,
		StageChapters, StageSceneSummaries, StageSceneContent, StageSceneEvaluation:
		return Stage(name), nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownStage, name)
	}
}

// Params carries per-call stage inputs. Batch stages read Count;
// incremental stages locate their parent via PartID/ChapterID and
// always produce the implicit next unit.
type Params struct {
	Premise       string // story stage
	Count         int    // batch stages, 1-10, default from limits
	PartID        string // chapters stage
	ChapterID     string // scene stages
	MaxIterations int    // scene-evaluation stage, 1-3
}

// UnitFailure reports one failed generation unit within a stage call.
type UnitFailure struct {
	UnitIndex int    `json:"unit_index"`
	Reason    string `json:"reason"`
}

// StageResult is the per-unit success/failure list a stage call
// returns, so callers can retry only the failed units.
type StageResult struct {
	Created []model.Entity `json:"created"`
	Failed  []UnitFailure  `json:"failed"`
}

// Orchestrator runs stages in dependency order against the storage
// collaborator and the structured generation adapter.
type Orchestrator struct {
	store  storage.Store
	gen    *agent.Generator
	critic refine.Critic
	limits config.Limits
	logger *slog.Logger

	mu         sync.Mutex
	storyLocks map[string]*sync.Mutex
}

type Option func(*Orchestrator)

func WithLimits(limits config.Limits) Option {
	return func(o *Orchestrator) {
		o.limits = limits
	}
}

func WithCritic(critic refine.Critic) Option {
	return func(o *Orchestrator) {
		o.critic = critic
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func New(store storage.Store, gen *agent.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		gen:        gen,
		limits:     config.DefaultLimits(),
		logger:     slog.Default().With("component", "orchestrator"),
		storyLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// storyLock returns the per-story mutex. Incremental stages for the
// same story must never interleave: chapter N+1's context depends on
// chapter N's durably recorded seeds and structural fields.
func (o *Orchestrator) storyLock(storyID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.storyLocks[storyID]
	if !ok {
		lock = &sync.Mutex{}
		o.storyLocks[storyID] = lock
	}
	return lock
}

// RunStage executes one stage for a story. Stage-scoped failures return
// an error and persist nothing; unit-scoped failures are reported in
// the result's Failed list with prior persisted siblings left intact.
func (o *Orchestrator) RunStage(ctx context.Context, stage Stage, storyID string, params Params) (StageResult, error) {
	if stage == StageStory {
		return o.runStory(ctx, params)
	}

	lock := o.storyLock(storyID)
	lock.Lock()
	defer lock.Unlock()

	o.logger.Info("running stage",
		"stage", string(stage),
		"story_id", storyID)

	switch stage {
	case StageCharacters:
		return o.runCharacterBatch(ctx, storyID, params)
	case StageSettings:
		return o.runSettingBatch(ctx, storyID, params)
	case StageParts:
		return o.runNextPart(ctx, storyID)
	case StageChapters:
		return o.runNextChapter(ctx, storyID, params)
	case StageSceneSummaries:
		return o.runNextSceneSummary(ctx, storyID, params)
	case StageSceneContent:
		return o.runNextSceneContent(ctx, storyID, params)
	case StageSceneEvaluation:
		return o.runNextSceneEvaluation(ctx, storyID, params)
	default:
		return StageResult{}, fmt.Errorf("%w: %q", core.ErrUnknownStage, stage)
	}
}

// ResetStory removes a story and everything under it. The only
// deletion path; individual entities are never deleted.
func (o *Orchestrator) ResetStory(ctx context.Context, storyID string) error {
	lock := o.storyLock(storyID)
	lock.Lock()
	defer lock.Unlock()

	o.logger.Warn("resetting story", "story_id", storyID)
	return o.store.DeleteStory(ctx, storyID)
}

// =============================================================================
// Story stage
// =============================================================================

func (o *Orchestrator) runStory(ctx context.Context, params Params) (StageResult, error) {
	if strings.TrimSpace(params.Premise) == "" {
		return StageResult{}, fmt.Errorf("story stage requires a premise")
	}

	story := &model.Story{}
	if err := o.gen.Generate(ctx, StoryPrompt(params.Premise), story); err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(1, err)}}, nil
	}
	if story.Status == "" {
		story.Status = model.StatusWriting
	}
	story.ID = uuid.New().String()

	if err := o.store.Insert(ctx, story); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("story created",
		"story_id", story.ID,
		"title", story.Title,
		"genre", string(story.Genre))
	return StageResult{Created: []model.Entity{story}}, nil
}

// =============================================================================
// Batch stages: characters, settings
// =============================================================================

func (o *Orchestrator) batchCount(requested int) int {
	count := requested
	if count == 0 {
		count = o.limits.DefaultBatchCount
	}
	if count < 1 {
		count = 1
	}
	if count > o.limits.MaxBatchCount {
		count = o.limits.MaxBatchCount
	}
	return count
}

func (o *Orchestrator) runCharacterBatch(ctx context.Context, storyID string, params Params) (StageResult, error) {
	story, err := o.requireStory(ctx, StageCharacters, storyID)
	if err != nil {
		return StageResult{}, err
	}
	existing, err := o.loadCharacters(ctx, storyID)
	if err != nil {
		return StageResult{}, err
	}

	bundle := &ContextBundle{Story: story}
	count := o.batchCount(params.Count)

	// Siblings are mutually independent: generation calls run
	// concurrently, validation and persistence serialize in unit order.
	generated := make([]*model.Character, count)
	genErrs := make([]error, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			c := &model.Character{StoryID: storyID}
			genErrs[i] = o.gen.Generate(gctx, CharacterPrompt(bundle, i+1, count, existing), c)
			if genErrs[i] == nil {
				generated[i] = c
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return StageResult{}, err
	}

	var result StageResult
	for i := 0; i < count; i++ {
		if genErrs[i] != nil {
			result.Failed = append(result.Failed, unitFailure(i+1, genErrs[i]))
			continue
		}
		c := generated[i]
		c.StoryID = storyID
		c.ID = uuid.New().String()
		if err := o.store.Insert(ctx, c); err != nil {
			return result, err
		}
		result.Created = append(result.Created, c)
	}

	o.logger.Info("character batch finished",
		"story_id", storyID,
		"created", len(result.Created),
		"failed", len(result.Failed))
	return result, nil
}

func (o *Orchestrator) runSettingBatch(ctx context.Context, storyID string, params Params) (StageResult, error) {
	story, err := o.requireStory(ctx, StageSettings, storyID)
	if err != nil {
		return StageResult{}, err
	}
	existing, err := o.loadSettings(ctx, storyID)
	if err != nil {
		return StageResult{}, err
	}

	bundle := &ContextBundle{Story: story}
	count := o.batchCount(params.Count)

	generated := make([]*model.Setting, count)
	genErrs := make([]error, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			s := &model.Setting{StoryID: storyID}
			genErrs[i] = o.gen.Generate(gctx, SettingPrompt(bundle, i+1, count, existing), s)
			if genErrs[i] == nil {
				generated[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return StageResult{}, err
	}

	var result StageResult
	for i := 0; i < count; i++ {
		if genErrs[i] != nil {
			result.Failed = append(result.Failed, unitFailure(i+1, genErrs[i]))
			continue
		}
		s := generated[i]
		s.StoryID = storyID
		s.ID = uuid.New().String()
		if err := o.store.Insert(ctx, s); err != nil {
			return result, err
		}
		result.Created = append(result.Created, s)
	}

	o.logger.Info("setting batch finished",
		"story_id", storyID,
		"created", len(result.Created),
		"failed", len(result.Failed))
	return result, nil
}

// =============================================================================
// Incremental stages
// =============================================================================

func (o *Orchestrator) runNextPart(ctx context.Context, storyID string) (StageResult, error) {
	story, characters, settings, err := o.requireCast(ctx, StageParts, storyID)
	if err != nil {
		return StageResult{}, err
	}
	siblings, err := o.loadParts(ctx, storyID)
	if err != nil {
		return StageResult{}, err
	}

	nextIndex := len(siblings) + 1
	bundle := &ContextBundle{Story: story, Characters: characters, Settings: settings}

	// Pipeline-owned fields are set before Generate so a response that
	// omits them still validates; the assignments after Generate override
	// anything the model invents.
	part := &model.Part{StoryID: storyID, OrderIndex: nextIndex}
	if err := o.gen.Generate(ctx, PartPrompt(bundle, nextIndex, siblings), part); err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}
	part.StoryID = storyID
	part.OrderIndex = nextIndex

	if err := contract.CheckPart(part, characters, settings); err != nil {
		o.logger.Warn("part failed structural contract",
			"story_id", storyID,
			"unit_index", nextIndex,
			"error", err)
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}

	part.ID = uuid.New().String()
	if err := o.store.Insert(ctx, part); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("part created",
		"story_id", storyID,
		"part_id", part.ID,
		"order_index", part.OrderIndex)
	return StageResult{Created: []model.Entity{part}}, nil
}

func (o *Orchestrator) runNextChapter(ctx context.Context, storyID string, params Params) (StageResult, error) {
	if params.PartID == "" {
		return StageResult{}, fmt.Errorf("chapters stage requires a part id")
	}
	story, characters, settings, err := o.requireCast(ctx, StageChapters, storyID)
	if err != nil {
		return StageResult{}, err
	}

	part, err := o.requirePart(ctx, StageChapters, storyID, params.PartID, characters, settings)
	if err != nil {
		return StageResult{}, err
	}

	allChapters, err := o.loadStoryChapters(ctx, storyID)
	if err != nil {
		return StageResult{}, err
	}
	nextIndex := len(allChapters) + 1

	// Ledger state is derived from persisted chapters, so a resumed run
	// sees exactly what was durably recorded.
	ledger, err := seed.Rehydrate(storyID, allChapters)
	if err != nil {
		return StageResult{}, fmt.Errorf("rehydrating seed ledger: %w", err)
	}
	unresolved := ledger.Unresolved(nextIndex)
	if len(unresolved) > o.limits.SeedRetentionWindow {
		unresolved = unresolved[:o.limits.SeedRetentionWindow]
	}

	bundle := &ContextBundle{
		Story:      story,
		Part:       part,
		Characters: filterCharacters(characters, partCharacterIDs(part)),
		Settings:   filterSettings(settings, part.SettingIDs),
	}

	chapter := &model.Chapter{StoryID: storyID, PartID: part.ID, OrderIndex: nextIndex}
	if err := o.gen.Generate(ctx, ChapterPrompt(bundle, nextIndex, allChapters, unresolved), chapter); err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}
	chapter.StoryID = storyID
	chapter.PartID = part.ID
	chapter.OrderIndex = nextIndex

	if err := contract.CheckChapter(chapter, part); err != nil {
		o.logger.Warn("chapter failed structural contract",
			"story_id", storyID,
			"unit_index", nextIndex,
			"error", err)
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}

	chapter.ID = uuid.New().String()
	if err := ledger.RecordResolved(chapter.ID, chapter.OrderIndex, chapter.SeedsResolved); err != nil {
		o.logger.Warn("chapter failed seed ledger validation",
			"story_id", storyID,
			"unit_index", nextIndex,
			"error", err)
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}
	ledger.RecordPlanted(chapter.ID, chapter.OrderIndex, chapter.SeedsPlanted)

	if err := o.store.Insert(ctx, chapter); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("chapter created",
		"story_id", storyID,
		"chapter_id", chapter.ID,
		"order_index", chapter.OrderIndex,
		"seeds_planted", len(chapter.SeedsPlanted),
		"seeds_resolved", len(chapter.SeedsResolved))
	return StageResult{Created: []model.Entity{chapter}}, nil
}

func (o *Orchestrator) runNextSceneSummary(ctx context.Context, storyID string, params Params) (StageResult, error) {
	bundle, err := o.requireChapterScope(ctx, StageSceneSummaries, storyID, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}

	siblings, err := o.loadSceneSummaries(ctx, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}
	nextIndex := len(siblings) + 1
	expected := contract.ExpectedPhase(nextIndex)

	scene := &model.SceneSummary{StoryID: storyID, ChapterID: bundle.Chapter.ID, OrderIndex: nextIndex}
	if err := o.gen.Generate(ctx, SceneSummaryPrompt(bundle, nextIndex, expected, siblings), scene); err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}
	scene.StoryID = storyID
	scene.ChapterID = bundle.Chapter.ID
	scene.OrderIndex = nextIndex

	if err := contract.CheckScene(scene, bundle.Chapter); err != nil {
		o.logger.Warn("scene summary failed structural contract",
			"story_id", storyID,
			"chapter_id", bundle.Chapter.ID,
			"unit_index", nextIndex,
			"error", err)
		return StageResult{Failed: []UnitFailure{unitFailure(nextIndex, err)}}, nil
	}

	scene.ID = uuid.New().String()
	if err := o.store.Insert(ctx, scene); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("scene summary created",
		"story_id", storyID,
		"chapter_id", bundle.Chapter.ID,
		"order_index", nextIndex,
		"cycle_phase", string(scene.CyclePhase))
	return StageResult{Created: []model.Entity{scene}}, nil
}

func (o *Orchestrator) runNextSceneContent(ctx context.Context, storyID string, params Params) (StageResult, error) {
	bundle, err := o.requireChapterScope(ctx, StageSceneContent, storyID, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}

	summaries, err := o.loadSceneSummaries(ctx, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}
	if len(summaries) == 0 {
		return StageResult{}, &core.MissingDependencyError{
			Stage: string(StageSceneContent), StoryID: storyID,
			Missing: fmt.Sprintf("no scene summaries for chapter %s", params.ChapterID),
		}
	}

	target, err := o.nextUnwrittenScene(ctx, summaries)
	if err != nil {
		return StageResult{}, err
	}
	if target == nil {
		// All scenes already have prose.
		return StageResult{}, nil
	}

	prose, err := o.gen.GenerateRaw(ctx, SceneProsePrompt(bundle, target, summaries))
	if err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(target.OrderIndex, err)}}, nil
	}
	prose = strings.TrimSpace(prose)

	content := &model.SceneContent{
		ID:             uuid.New().String(),
		SceneSummaryID: target.ID,
		StoryID:        storyID,
		OrderIndex:     target.OrderIndex,
		Text:           prose,
		WordCount:      len(strings.Fields(prose)),
	}
	if err := model.Validate(content); err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(target.OrderIndex, err)}}, nil
	}

	if err := o.store.Insert(ctx, content); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("scene content created",
		"story_id", storyID,
		"scene_summary_id", target.ID,
		"order_index", target.OrderIndex,
		"word_count", content.WordCount)
	return StageResult{Created: []model.Entity{content}}, nil
}

func (o *Orchestrator) runNextSceneEvaluation(ctx context.Context, storyID string, params Params) (StageResult, error) {
	if o.critic == nil {
		return StageResult{}, fmt.Errorf("scene-evaluation stage requires a critic")
	}
	bundle, err := o.requireChapterScope(ctx, StageSceneEvaluation, storyID, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}

	summaries, err := o.loadSceneSummaries(ctx, params.ChapterID)
	if err != nil {
		return StageResult{}, err
	}

	summary, content, err := o.nextUnevaluatedScene(ctx, summaries)
	if err != nil {
		return StageResult{}, err
	}
	if content == nil {
		// Nothing left to evaluate in this chapter.
		return StageResult{}, nil
	}

	maxIterations := params.MaxIterations
	if maxIterations == 0 {
		maxIterations = o.limits.MaxRefineIterations
	}

	outcome, err := refine.Run(ctx, o.critic, content.Text, StoryContext(bundle, summary), maxIterations)
	if err != nil {
		return StageResult{Failed: []UnitFailure{unitFailure(summary.OrderIndex, err)}}, nil
	}

	content.Evaluation = &model.Evaluation{
		Scores:     outcome.Scores,
		Overall:    outcome.Overall,
		Feedback:   outcome.Feedback,
		Iterations: outcome.Iterations,
		Improved:   outcome.Improved,
	}
	if outcome.Persist {
		content.Text = outcome.Text
		content.WordCount = len(strings.Fields(outcome.Text))
	}

	if err := o.store.Update(ctx, content); err != nil {
		return StageResult{}, err
	}

	o.logger.Info("scene evaluated",
		"story_id", storyID,
		"scene_summary_id", summary.ID,
		"state", string(outcome.State),
		"overall", outcome.Overall,
		"iterations", outcome.Iterations,
		"persisted_revision", outcome.Persist)
	return StageResult{Created: []model.Entity{content}}, nil
}

// =============================================================================
// Preconditions and loading
// =============================================================================

func (o *Orchestrator) requireStory(ctx context.Context, stage Stage, storyID string) (*model.Story, error) {
	e, err := o.store.Get(ctx, model.TypeStory, storyID)
	if err == core.ErrNotFound {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: "story"}
	} else if err != nil {
		return nil, err
	}
	return e.(*model.Story), nil
}

// requireCast loads story, characters, and settings, failing fast when
// any parent level is absent.
func (o *Orchestrator) requireCast(ctx context.Context, stage Stage, storyID string) (*model.Story, []*model.Character, []*model.Setting, error) {
	story, err := o.requireStory(ctx, stage, storyID)
	if err != nil {
		return nil, nil, nil, err
	}
	characters, err := o.loadCharacters(ctx, storyID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(characters) == 0 {
		return nil, nil, nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: "characters"}
	}
	settings, err := o.loadSettings(ctx, storyID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(settings) == 0 {
		return nil, nil, nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: "settings"}
	}
	return story, characters, settings, nil
}

// requirePart loads a part and re-checks its own structural contract;
// a chapter must never build on a structurally invalid parent.
func (o *Orchestrator) requirePart(ctx context.Context, stage Stage, storyID, partID string, characters []*model.Character, settings []*model.Setting) (*model.Part, error) {
	e, err := o.store.Get(ctx, model.TypePart, partID)
	if err == core.ErrNotFound {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: fmt.Sprintf("part %s", partID)}
	} else if err != nil {
		return nil, err
	}
	part := e.(*model.Part)
	if part.StoryID != storyID {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: fmt.Sprintf("part %s belongs to another story", partID)}
	}
	if err := contract.CheckPart(part, characters, settings); err != nil {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID,
			Missing: fmt.Sprintf("part %s fails its structural contract: %v", partID, err)}
	}
	return part, nil
}

// requireChapterScope loads the chapter plus its ancestors and the
// characters/settings filtered to the chapter's id arrays.
func (o *Orchestrator) requireChapterScope(ctx context.Context, stage Stage, storyID, chapterID string) (*ContextBundle, error) {
	if chapterID == "" {
		return nil, fmt.Errorf("%s stage requires a chapter id", stage)
	}
	story, characters, settings, err := o.requireCast(ctx, stage, storyID)
	if err != nil {
		return nil, err
	}

	e, err := o.store.Get(ctx, model.TypeChapter, chapterID)
	if err == core.ErrNotFound {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: fmt.Sprintf("chapter %s", chapterID)}
	} else if err != nil {
		return nil, err
	}
	chapter := e.(*model.Chapter)
	if chapter.StoryID != storyID {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID, Missing: fmt.Sprintf("chapter %s belongs to another story", chapterID)}
	}

	part, err := o.requirePart(ctx, stage, storyID, chapter.PartID, characters, settings)
	if err != nil {
		return nil, err
	}
	if err := contract.CheckChapter(chapter, part); err != nil {
		return nil, &core.MissingDependencyError{Stage: string(stage), StoryID: storyID,
			Missing: fmt.Sprintf("chapter %s fails its structural contract: %v", chapterID, err)}
	}

	return &ContextBundle{
		Story:      story,
		Part:       part,
		Chapter:    chapter,
		Characters: filterCharacters(characters, chapter.FocusCharacters),
		Settings:   filterSettings(settings, chapter.SettingIDs),
	}, nil
}

func (o *Orchestrator) loadCharacters(ctx context.Context, storyID string) ([]*model.Character, error) {
	entities, err := o.store.ListByParent(ctx, model.TypeCharacter, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Character, len(entities))
	for i, e := range entities {
		out[i] = e.(*model.Character)
	}
	return out, nil
}

func (o *Orchestrator) loadSettings(ctx context.Context, storyID string) ([]*model.Setting, error) {
	entities, err := o.store.ListByParent(ctx, model.TypeSetting, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Setting, len(entities))
	for i, e := range entities {
		out[i] = e.(*model.Setting)
	}
	return out, nil
}

func (o *Orchestrator) loadParts(ctx context.Context, storyID string) ([]*model.Part, error) {
	entities, err := o.store.ListByParent(ctx, model.TypePart, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Part, len(entities))
	for i, e := range entities {
		out[i] = e.(*model.Part)
	}
	return out, nil
}

// loadStoryChapters aggregates chapters across all parts, ordered by
// the global chapter order index.
func (o *Orchestrator) loadStoryChapters(ctx context.Context, storyID string) ([]*model.Chapter, error) {
	parts, err := o.loadParts(ctx, storyID)
	if err != nil {
		return nil, err
	}
	var chapters []*model.Chapter
	for _, part := range parts {
		entities, err := o.store.ListByParent(ctx, model.TypeChapter, part.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			chapters = append(chapters, e.(*model.Chapter))
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].OrderIndex < chapters[j].OrderIndex })
	return chapters, nil
}

func (o *Orchestrator) loadSceneSummaries(ctx context.Context, chapterID string) ([]*model.SceneSummary, error) {
	entities, err := o.store.ListByParent(ctx, model.TypeSceneSummary, chapterID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.SceneSummary, len(entities))
	for i, e := range entities {
		out[i] = e.(*model.SceneSummary)
	}
	return out, nil
}

// nextUnwrittenScene returns the first scene summary without prose, in
// order, or nil when the chapter is fully written.
func (o *Orchestrator) nextUnwrittenScene(ctx context.Context, summaries []*model.SceneSummary) (*model.SceneSummary, error) {
	for _, s := range summaries {
		contents, err := o.store.ListByParent(ctx, model.TypeSceneContent, s.ID)
		if err != nil {
			return nil, err
		}
		if len(contents) == 0 {
			return s, nil
		}
	}
	return nil, nil
}

// nextUnevaluatedScene returns the first written scene without an
// evaluation record, or nils when everything is evaluated.
func (o *Orchestrator) nextUnevaluatedScene(ctx context.Context, summaries []*model.SceneSummary) (*model.SceneSummary, *model.SceneContent, error) {
	for _, s := range summaries {
		contents, err := o.store.ListByParent(ctx, model.TypeSceneContent, s.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(contents) == 0 {
			continue
		}
		content := contents[0].(*model.SceneContent)
		if content.Evaluation == nil {
			return s, content, nil
		}
	}
	return nil, nil, nil
}

// =============================================================================
// Helpers
// =============================================================================

func unitFailure(index int, err error) UnitFailure {
	return UnitFailure{UnitIndex: index, Reason: err.Error()}
}

func partCharacterIDs(part *model.Part) []string {
	ids := make([]string, 0, len(part.CharacterArcs))
	for _, arc := range part.CharacterArcs {
		ids = append(ids, arc.CharacterID)
	}
	return ids
}

func filterCharacters(characters []*model.Character, ids []string) []*model.Character {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.Character
	for _, c := range characters {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func filterSettings(settings []*model.Setting, ids []string) []*model.Setting {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.Setting
	for _, s := range settings {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
