package model

// AdversityPair splits an adversity into its internal and external faces.
type AdversityPair struct {
	Internal string `json:"internal" validate:"required"`
	External string `json:"external" validate:"required"`
}

// ArcCycle is one pass through the four-phase virtue cycle for a single
// character. The same shape is used at part granularity (macro) and
// chapter granularity (micro); the containment level tags which one.
type ArcCycle struct {
	CharacterID  string        `json:"character_id" validate:"required"`
	Adversity    AdversityPair `json:"adversity" validate:"required"`
	Virtue       string        `json:"virtue" validate:"required"`
	Consequence  string        `json:"consequence" validate:"required"`
	NewAdversity string        `json:"new_adversity" validate:"required"`
}

// Part groups chapters under a story. OrderIndex is 1-based and unique
// per story.
type Part struct {
	ID            string     `json:"id"`
	StoryID       string     `json:"story_id" validate:"required"`
	OrderIndex    int        `json:"order_index" validate:"required,min=1"`
	Title         string     `json:"title" validate:"required"`
	Summary       string     `json:"summary" validate:"required"`
	CharacterArcs []ArcCycle `json:"character_arcs" validate:"required,min=1,dive"`
	SettingIDs    []string   `json:"setting_ids" validate:"required,min=2,max=4,dive,required"`
}

func (p *Part) EntityType() EntityType { return TypePart }
func (p *Part) EntityID() string       { return p.ID }
func (p *Part) SetEntityID(id string)  { p.ID = id }
func (p *Part) ParentID() string       { return p.StoryID }
func (p *Part) Order() int             { return p.OrderIndex }
