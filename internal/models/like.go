package models

import (
	"time"

	"github.com/google/uuid"
)

// Like records one entry of a user's liked list. The unique index rejects a
// second like of the same book at insert time; Position preserves insertion
// order for rendering.
type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_book"`
	BookID    uuid.UUID `json:"bookId" gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_book"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
