package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string    `json:"title" gorm:"uniqueIndex;not null"`
	Description string    `json:"description" gorm:"not null"`
	// Author is the creator's username, denormalized by design.
	Author    string    `json:"author" gorm:"index;not null"`
	Picture   string    `json:"picture"`
	Date      string    `json:"date" gorm:"not null"` // RFC3339 creation timestamp
	AI        bool      `json:"ai" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Chapters []Chapter `json:"-" gorm:"foreignKey:BookID"`
}

// FileList renders chapter audio URLs in seq order. URLs are generated and
// never contain commas, so the joined form is unambiguous.
func (b *Book) FileList() string {
	urls := make([]string, 0, len(b.Chapters))
	for _, c := range b.Chapters {
		urls = append(urls, c.URL)
	}
	return strings.Join(urls, ",")
}
