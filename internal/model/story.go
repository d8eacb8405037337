package model

import "fmt"

// Genre classifies the story's genre.
type Genre string

const (
	GenreFantasy        Genre = "fantasy"
	GenreScienceFiction Genre = "science_fiction"
	GenreMystery        Genre = "mystery"
	GenreRomance        Genre = "romance"
	GenreThriller       Genre = "thriller"
	GenreHistorical     Genre = "historical"
	GenreLiterary       Genre = "literary"
	GenreAdventure      Genre = "adventure"
)

// Tone classifies the story's emotional register.
type Tone string

const (
	ToneHopeful     Tone = "hopeful"
	ToneDark        Tone = "dark"
	ToneBittersweet Tone = "bittersweet"
	ToneWhimsical   Tone = "whimsical"
	ToneSolemn      Tone = "solemn"
	ToneSatirical   Tone = "satirical"
)

// StoryStatus tracks the authoring lifecycle. Transitions are one-way:
// writing -> publishing -> published.
type StoryStatus string

const (
	StatusWriting    StoryStatus = "writing"
	StatusPublishing StoryStatus = "publishing"
	StatusPublished  StoryStatus = "published"
)

// Story is the root of the generation hierarchy. Immutable once parts
// exist, except for status transitions.
type Story struct {
	ID             string      `json:"id"`
	Title          string      `json:"title" validate:"required"`
	Summary        string      `json:"summary" validate:"required"`
	Genre          Genre       `json:"genre" validate:"required,oneof=fantasy science_fiction mystery romance thriller historical literary adventure"`
	Tone           Tone        `json:"tone" validate:"required,oneof=hopeful dark bittersweet whimsical solemn satirical"`
	MoralFramework string      `json:"moral_framework" validate:"required"`
	Status         StoryStatus `json:"status" validate:"omitempty,oneof=writing publishing published"`
}

func (s *Story) EntityType() EntityType { return TypeStory }
func (s *Story) EntityID() string       { return s.ID }
func (s *Story) SetEntityID(id string)  { s.ID = id }
func (s *Story) ParentID() string       { return "" }
func (s *Story) Order() int             { return 0 }

// Transition advances the story status. Only the forward step is
// allowed at each state.
func (s *Story) Transition(next StoryStatus) error {
	allowed := map[StoryStatus]StoryStatus{
		StatusWriting:    StatusPublishing,
		StatusPublishing: StatusPublished,
	}
	if allowed[s.Status] != next {
		return fmt.Errorf("invalid status transition %s -> %s", s.Status, next)
	}
	s.Status = next
	return nil
}
