package models

import (
	"time"

	"github.com/google/uuid"
)

// Chapter is one audio segment of a book. Seq is 1-based and contiguous per
// book; chapter order is seq order.
type Chapter struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BookID    uuid.UUID `json:"bookId" gorm:"type:uuid;not null;uniqueIndex:idx_chapters_book_seq"`
	Seq       int       `json:"seq" gorm:"not null;uniqueIndex:idx_chapters_book_seq"`
	URL       string    `json:"url" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
