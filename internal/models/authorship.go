package models

import (
	"time"

	"github.com/google/uuid"
)

// Authorship records one entry of a user's created-books list.
type Authorship struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_authorships_user_book"`
	BookID    uuid.UUID `json:"bookId" gorm:"type:uuid;not null;uniqueIndex:idx_authorships_user_book"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
