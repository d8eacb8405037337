package model

// CyclePhase positions a scene within the five-step adversity-triumph
// structure. The phase is derived from the scene's position in its
// chapter: 1=setup, 2=adversity, 3=virtue, 4=consequence, >=5=transition.
type CyclePhase string

const (
	PhaseSetup       CyclePhase = "setup"
	PhaseAdversity   CyclePhase = "adversity"
	PhaseVirtue      CyclePhase = "virtue"
	PhaseConsequence CyclePhase = "consequence"
	PhaseTransition  CyclePhase = "transition"
)

// EmotionalBeat names the dominant feeling a scene should land.
type EmotionalBeat string

const (
	BeatTension EmotionalBeat = "tension"
	BeatRelief  EmotionalBeat = "relief"
	BeatWonder  EmotionalBeat = "wonder"
	BeatDread   EmotionalBeat = "dread"
	BeatGrief   EmotionalBeat = "grief"
	BeatJoy     EmotionalBeat = "joy"
	BeatResolve EmotionalBeat = "resolve"
	BeatUnease  EmotionalBeat = "unease"
)

// SceneLength maps to a target word-count band.
type SceneLength string

const (
	LengthShort  SceneLength = "short"
	LengthMedium SceneLength = "medium"
	LengthLong   SceneLength = "long"
)

// WordBand returns the inclusive word-count band for a suggested length.
func (l SceneLength) WordBand() (min, max int) {
	switch l {
	case LengthShort:
		return 400, 800
	case LengthLong:
		return 1500, 2500
	default:
		return 800, 1500
	}
}

// SceneSummary plans a single scene before prose is written.
type SceneSummary struct {
	ID              string        `json:"id"`
	ChapterID       string        `json:"chapter_id" validate:"required"`
	StoryID         string        `json:"story_id" validate:"required"`
	OrderIndex      int           `json:"order_index" validate:"required,min=1"`
	Title           string        `json:"title" validate:"required"`
	Summary         string        `json:"summary" validate:"required"`
	CyclePhase      CyclePhase    `json:"cycle_phase" validate:"required,oneof=setup adversity virtue consequence transition"`
	EmotionalBeat   EmotionalBeat `json:"emotional_beat" validate:"required,oneof=tension relief wonder dread grief joy resolve unease"`
	CharacterFocus  []string      `json:"character_focus" validate:"required,min=1,dive,required"`
	SettingID       string        `json:"setting_id" validate:"required"`
	SensoryAnchors  []string      `json:"sensory_anchors" validate:"required,min=1,dive,required"`
	SuggestedLength SceneLength   `json:"suggested_length" validate:"required,oneof=short medium long"`
}

func (s *SceneSummary) EntityType() EntityType { return TypeSceneSummary }
func (s *SceneSummary) EntityID() string       { return s.ID }
func (s *SceneSummary) SetEntityID(id string)  { s.ID = id }
func (s *SceneSummary) ParentID() string       { return s.ChapterID }
func (s *SceneSummary) Order() int             { return s.OrderIndex }

// Evaluation records the outcome of the scene refinement loop.
// Scores are rationals in [1.0, 4.0]; Overall is their mean.
type Evaluation struct {
	Scores     map[string]float64 `json:"scores"`
	Overall    float64            `json:"overall"`
	Feedback   string             `json:"feedback"`
	Iterations int                `json:"iterations"`
	Improved   bool               `json:"improved"`
}

// SceneContent is the generated prose for one scene summary. Mutated at
// most once post-creation (refinement update).
type SceneContent struct {
	ID             string      `json:"id"`
	SceneSummaryID string      `json:"scene_summary_id" validate:"required"`
	StoryID        string      `json:"story_id" validate:"required"`
	OrderIndex     int         `json:"order_index" validate:"required,min=1"`
	Text           string      `json:"text" validate:"required"`
	WordCount      int         `json:"word_count" validate:"required,min=1"`
	Evaluation     *Evaluation `json:"evaluation,omitempty"`
}

func (s *SceneContent) EntityType() EntityType { return TypeSceneContent }
func (s *SceneContent) EntityID() string       { return s.ID }
func (s *SceneContent) SetEntityID(id string)  { s.ID = id }
func (s *SceneContent) ParentID() string       { return s.SceneSummaryID }
func (s *SceneContent) Order() int             { return s.OrderIndex }
