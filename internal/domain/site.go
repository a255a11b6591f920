package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tone is the configured tone-of-voice a site's rewritten content is written in.
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneCasual         Tone = "casual"
	ToneAuthoritative  Tone = "authoritative"
	ToneFriendly       Tone = "friendly"
	ToneWitty          Tone = "witty"
	ToneFormal         Tone = "formal"
	ToneConversational Tone = "conversational"
)

// Valid reports whether t is one of the supported tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneAuthoritative, ToneFriendly,
		ToneWitty, ToneFormal, ToneConversational:
		return true
	}
	return false
}

// Site is one tenant content property, keyed by slug.
type Site struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Tone         Tone      `json:"tone"`
	BrandContext string    `json:"brandContext,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
