package models

import "time"

// MasterSetType selects how a master set's target cards are chosen.
type MasterSetType string

const (
	MasterSetTypePokemon MasterSetType = "pokemon"
	MasterSetTypeSet     MasterSetType = "set"
)

// AssignmentStatus tracks a participant's response to an assignment.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentActive   AssignmentStatus = "active"
	AssignmentRejected AssignmentStatus = "rejected"
)

// Counts reports whether the assignment counts towards a master set's
// participant total.
func (s AssignmentStatus) Counts() bool {
	return s == AssignmentAccepted || s == AssignmentActive
}

// MasterSet is a curated target list of cards handed out as a collection
// challenge.
type MasterSet struct {
	ID                  string        `json:"id,omitempty"`
	Name                string        `json:"name"`
	Description         string        `json:"description,omitempty"`
	Type                MasterSetType `json:"type"`
	TargetPokemonID     int           `json:"targetPokemonId,omitempty"`
	TargetSetID         string        `json:"targetSetId,omitempty"`
	Languages           []Language    `json:"languages"`
	Status              string        `json:"status"`
	TotalAssignments    int           `json:"totalAssignments"`
	TotalCardsCollected int           `json:"totalCardsCollected"`
	CreatedBy           string        `json:"createdBy,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Assignment is one participant's instance of a master set.
type Assignment struct {
	ID             string           `json:"id,omitempty"`
	MasterSetID    string           `json:"masterSetId"`
	UserID         string           `json:"userId,omitempty"`
	UserName       string           `json:"userName,omitempty"`
	CardEN         []string         `json:"card_en"`
	CardJA         []string         `json:"card_ja"`
	TotalCards     int              `json:"totalCards"`
	CollectedCards int              `json:"collectedCards"`
	Progress       int              `json:"progress"`
	Status         AssignmentStatus `json:"status"`
	AcceptedAt     *time.Time       `json:"acceptedAt,omitempty"`
	RejectedAt     *time.Time       `json:"rejectedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// CardIDs returns the assignment's target card ids for one language.
func (a *Assignment) CardIDs(lang Language) []string {
	if lang == LanguageJapanese {
		return a.CardJA
	}
	return a.CardEN
}

// CollectedCard marks a card as collected, either generally or for one
// assignment.
type CollectedCard struct {
	ID             string    `json:"id,omitempty"`
	UserID         string    `json:"userId"`
	CardID         string    `json:"cardId"`
	CardCollection string    `json:"cardCollection"`
	AssignmentID   string    `json:"assignmentId,omitempty"`
	MasterSetID    string    `json:"masterSetId,omitempty"`
	Quantity       int       `json:"quantity"`
	CollectedAt    time.Time `json:"collectedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
