package models

import "time"

// UserCard tracks general (non-assignment) collection state for one
// user/card pair. Its document id is UserCardID(userID, cardID).
type UserCard struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"userId"`
	CardID      string    `json:"cardId"`
	Quantity    int       `json:"quantity"`
	Notes       string    `json:"notes"`
	CollectedAt time.Time `json:"collectedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func UserCardID(userID, cardID string) string {
	return userID + "_" + cardID
}

// User is the account document; only the admin flag is read by the backend.
type User struct {
	ID          string    `json:"id,omitempty"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Metadata holds one catalog lookup list (types, subtypes, supertypes,
// rarities) under metadata/{name}.
type Metadata struct {
	Data      []string  `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}
