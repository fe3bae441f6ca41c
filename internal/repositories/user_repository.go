package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lectorium/server/internal/models"
)

// UserRepository is the persistence surface for users and their ordered
// liked-books list.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateFields(ctx context.Context, username string, fields map[string]interface{}) error
	AddLike(ctx context.Context, userID, bookID uuid.UUID) error
	RemoveLike(ctx context.Context, userID, bookID uuid.UUID) error
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func orderedByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *gormUserRepository) withLists(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Likes", orderedByPosition).
		Preload("Authorships", orderedByPosition)
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (r *gormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.withLists(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.withLists(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepository) UpdateFields(ctx context.Context, username string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLike appends bookID to the user's liked list in one insert. The position
// is computed in-database and the unique index on (user_id, book_id) rejects a
// duplicate like atomically, so no read-modify-write race exists.
func (r *gormUserRepository) AddLike(ctx context.Context, userID, bookID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.Like{}).Create(map[string]interface{}{
		"id":         uuid.New(),
		"user_id":    userID,
		"book_id":    bookID,
		"position":   gorm.Expr("(SELECT COALESCE(MAX(l.position)+1, 0) FROM likes l WHERE l.user_id = ?)", userID),
		"created_at": time.Now(),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// RemoveLike deletes the entry and reports ErrNotFound when the book was not
// in the list, by checking affected rows rather than comparing list lengths.
func (r *gormUserRepository) RemoveLike(ctx context.Context, userID, bookID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
