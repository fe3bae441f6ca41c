package users

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/google/uuid"

	"github.com/lectorium/server/internal/apperr"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	photoPattern    = regexp.MustCompile(`^data:image/([a-zA-Z0-9]+);base64,(.*)$`)
)

// maxPhotoBytes caps decoded profile photos at 10 MB.
const maxPhotoBytes = 10 << 20

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// PhotoStore is the slice of object storage the profile-photo flow needs.
type PhotoStore interface {
	Put(ctx context.Context, key string, blob []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(publicURL string) (string, bool)
}

// Service implements registration, login, profile editing and the liked-list
// mutations. Every successful mutation returns a freshly signed session token.
type Service struct {
	Users           repositories.UserRepository
	Photos          PhotoStore
	Tokens          *auth.TokenIssuer
	DefaultPhotoURL string
}

// Register creates a new account and returns its first session token.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	if username == "" || email == "" || password == "" {
		return "", apperr.BadInput("All fields are required.")
	}
	if !usernamePattern.MatchString(username) {
		return "", apperr.BadInput("Invalid username")
	}
	if !emailPattern.MatchString(email) {
		return "", apperr.BadInput("Invalid email format")
	}

	exists, err := s.Users.UsernameOrEmailExists(ctx, username, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", apperr.Conflict("Email or username already exists")
	}

	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Password: auth.HashPassword(password),
		Photo:    s.DefaultPhotoURL,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		// The existence check raced a concurrent registration; the unique
		// index is the authority.
		if errors.Is(err, repositories.ErrConflict) {
			return "", apperr.Conflict("Email or username already exists")
		}
		return "", err
	}

	created, err := s.Users.GetByID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return s.Tokens.Issue(auth.SnapshotUser(created))
}

// Login verifies credentials and returns a session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", apperr.BadInput("Invalid credentials format")
	}

	user, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", apperr.NotFound("User not found")
	}
	if err != nil {
		return "", err
	}

	if !auth.VerifyPassword(user.Password, password) {
		return "", apperr.Unauthenticated("Invalid credentials")
	}

	return s.Tokens.Issue(auth.SnapshotUser(user))
}

// UpdateInput carries a profile edit. Zero-valued fields are left unchanged.
type UpdateInput struct {
	Username string
	Email    string
	Password string
	// Photo is a base64 data URL (data:image/...;base64,...).
	Photo string
}

// Update edits the user's profile and returns a fresh session token.
func (s *Service) Update(ctx context.Context, in UpdateInput) (string, error) {
	if !usernamePattern.MatchString(in.Username) {
		return "", apperr.BadInput("Invalid username")
	}

	user, err := s.Users.GetByUsername(ctx, in.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", apperr.NotFound("User not found")
	}
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{}

	if in.Email != "" && in.Email != user.Email {
		if !emailPattern.MatchString(in.Email) {
			return "", apperr.BadInput("Invalid email format")
		}
		taken, err := s.Users.EmailExists(ctx, in.Email)
		if err != nil {
			return "", err
		}
		if taken {
			return "", apperr.Conflict("Email already in use")
		}
		fields["email"] = in.Email
	}

	if in.Password != "" {
		fields["password"] = auth.HashPassword(in.Password)
	}

	if in.Photo != "" {
		photoURL, err := s.replacePhoto(ctx, user, in.Photo)
		if err != nil {
			return "", err
		}
		fields["photo"] = photoURL
	}

	if len(fields) > 0 {
		if err := s.Users.UpdateFields(ctx, in.Username, fields); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return "", apperr.Conflict("Email already in use")
			}
			return "", err
		}
	}

	updated, err := s.Users.GetByUsername(ctx, in.Username)
	if err != nil {
		return "", err
	}
	return s.Tokens.Issue(auth.SnapshotUser(updated))
}

// replacePhoto validates and uploads the new profile photo and deletes the
// old object best-effort.
func (s *Service) replacePhoto(ctx context.Context, user *models.User, photo string) (string, error) {
	matches := photoPattern.FindStringSubmatch(photo)
	if matches == nil {
		return "", apperr.BadInput("Photo must be a base64 encoded image")
	}

	mimeType := "image/" + matches[1]
	if !allowedPhotoTypes[mimeType] {
		return "", apperr.BadInput("Unsupported image format. Allowed: JPEG, PNG, WebP")
	}

	data, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return "", apperr.BadInput("Invalid base64 data")
	}
	if len(data) > maxPhotoBytes {
		return "", apperr.BadInput("Image too large. Maximum size: 10MB")
	}

	extension := matches[1]
	if extension == "jpeg" {
		extension = "jpg"
	}
	key := fmt.Sprintf("images/users/%s.%s", uuid.New(), extension)

	photoURL, err := s.Photos.Put(ctx, key, data, mimeType)
	if err != nil {
		return "", err
	}

	if oldKey, ok := s.Photos.KeyFromURL(user.Photo); ok {
		if err := s.Photos.Delete(ctx, oldKey); err != nil {
			log.Printf("users: failed to delete old photo %s: %v", oldKey, err)
		}
	}

	return photoURL, nil
}

// AddLike appends the book to the user's liked list and returns a fresh
// session token for the updated state.
func (s *Service) AddLike(ctx context.Context, userID, bookID uuid.UUID) (string, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperr.NotFound("User not found")
		}
		return "", err
	}

	if err := s.Users.AddLike(ctx, userID, bookID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return "", apperr.Conflict("Like has already been added.")
		}
		return "", err
	}

	return s.tokenFor(ctx, userID)
}

// RemoveLike removes the book from the user's liked list and returns a fresh
// session token. Removing a book that was never liked is an error and leaves
// the list unchanged.
func (s *Service) RemoveLike(ctx context.Context, userID, bookID uuid.UUID) (string, error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperr.NotFound("User not found")
		}
		return "", err
	}

	if err := s.Users.RemoveLike(ctx, userID, bookID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperr.NotFound("Book not found in liked.")
		}
		return "", err
	}

	return s.tokenFor(ctx, userID)
}

// GetByUsername loads a user for the REST flows that address users by name.
func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return user, err
}

// Me returns the fresh database state of the token's user.
func (s *Service) Me(ctx context.Context, id string) (*models.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Unauthenticated("Unauthorized")
	}
	user, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	return user, err
}

func (s *Service) tokenFor(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.Tokens.Issue(auth.SnapshotUser(user))
}
