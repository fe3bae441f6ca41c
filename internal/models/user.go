package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Photo     string    `json:"photo"`
	Currently string    `json:"currently"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	// Ordered lists rendered to clients as "id1, id2" strings.
	Likes       []Like       `json:"-" gorm:"foreignKey:UserID"`
	Authorships []Authorship `json:"-" gorm:"foreignKey:UserID"`
}

// LikedList renders the user's liked book ids in insertion order.
func (u *User) LikedList() string {
	ids := make([]string, 0, len(u.Likes))
	for _, l := range u.Likes {
		ids = append(ids, l.BookID.String())
	}
	return strings.Join(ids, ", ")
}

// CreatedList renders the user's authored book ids in insertion order.
func (u *User) CreatedList() string {
	ids := make([]string, 0, len(u.Authorships))
	for _, a := range u.Authorships {
		ids = append(ids, a.BookID.String())
	}
	return strings.Join(ids, ", ")
}
