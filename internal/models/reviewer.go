package models

import "time"

// Reviewer represents a loan officer allowed to run and read assessments
type Reviewer struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
}
