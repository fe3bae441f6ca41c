package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lectorium/server/internal/models"
)

// BookRepository is the persistence surface for books and their chapters.
type BookRepository interface {
	List(ctx context.Context) ([]models.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	// CreateWithAuthorship persists the book, its chapters and the append to
	// the author's created list in one transaction.
	CreateWithAuthorship(ctx context.Context, book *models.Book, authorID uuid.UUID) error
}

type gormBookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &gormBookRepository{db: db}
}

func orderedBySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

func (r *gormBookRepository) List(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).Preload("Chapters", orderedBySeq).Find(&books).Error
	return books, err
}

func (r *gormBookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Preload("Chapters", orderedBySeq).Where("id = ?", id).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *gormBookRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("title = ?", title).
		Count(&count).Error
	return count > 0, err
}

func (r *gormBookRepository) CreateWithAuthorship(ctx context.Context, book *models.Book, authorID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(book).Error; err != nil {
			return err
		}
		return tx.Model(&models.Authorship{}).Create(map[string]interface{}{
			"id":         uuid.New(),
			"user_id":    authorID,
			"book_id":    book.ID,
			"position":   gorm.Expr("(SELECT COALESCE(MAX(a.position)+1, 0) FROM authorships a WHERE a.user_id = ?)", authorID),
			"created_at": time.Now(),
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
