package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/books"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/users"
)

type stubUserRepo struct {
	users map[string]*models.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.Username]; ok {
		return repositories.ErrConflict
	}
	s.users[user.Username] = user
	return nil
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (s *stubUserRepo) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUserRepo) UpdateFields(ctx context.Context, username string, fields map[string]interface{}) error {
	if _, ok := s.users[username]; !ok {
		return repositories.ErrNotFound
	}
	return nil
}

func (s *stubUserRepo) AddLike(ctx context.Context, userID, bookID uuid.UUID) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	for _, l := range u.Likes {
		if l.BookID == bookID {
			return repositories.ErrConflict
		}
	}
	u.Likes = append(u.Likes, models.Like{UserID: userID, BookID: bookID})
	return nil
}

func (s *stubUserRepo) RemoveLike(ctx context.Context, userID, bookID uuid.UUID) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	for i, l := range u.Likes {
		if l.BookID == bookID {
			u.Likes = append(u.Likes[:i], u.Likes[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type stubBookRepo struct {
	books []models.Book
	saved *models.Book
}

func (s *stubBookRepo) List(ctx context.Context) ([]models.Book, error) {
	return s.books, nil
}

func (s *stubBookRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	for i := range s.books {
		if s.books[i].ID == id {
			return &s.books[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubBookRepo) TitleExists(ctx context.Context, title string) (bool, error) {
	for _, b := range s.books {
		if b.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubBookRepo) CreateWithAuthorship(ctx context.Context, book *models.Book, authorID uuid.UUID) error {
	s.saved = book
	s.books = append(s.books, *book)
	return nil
}

type stubUploader struct{}

func (stubUploader) Put(ctx context.Context, key string, blob []byte, contentType string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (stubUploader) Delete(ctx context.Context, key string) error { return nil }

func (stubUploader) KeyFromURL(publicURL string) (string, bool) { return "", false }

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("narrated:" + text), nil
}

type fixture struct {
	users    *stubUserRepo
	books    *stubBookRepo
	service  *users.Service
	ingestor *books.Ingestor
	tokens   *auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	userRepo := &stubUserRepo{users: map[string]*models.User{}}
	bookRepo := &stubBookRepo{}

	service := &users.Service{
		Users:           userRepo,
		Photos:          stubUploader{},
		Tokens:          tokens,
		DefaultPhotoURL: "https://cdn.example.com/images/users/default-profile-picture.webp",
	}

	return &fixture{
		users:    userRepo,
		books:    bookRepo,
		service:  service,
		ingestor: books.NewIngestor(userRepo, bookRepo, stubUploader{}, stubSynth{}, tokens),
		tokens:   tokens,
	}
}

func (f *fixture) seedUser(username, password string) *models.User {
	u := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Password: auth.HashPassword(password),
	}
	f.users.users[username] = u
	return u
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON object: %v (%s)", err, rec.Body.String())
	}
	return body
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != message {
		t.Fatalf("error = %q, want %q", got, message)
	}
}

func wantToken(t *testing.T, f *fixture, rec *httptest.ResponseRecorder) auth.UserSnapshot {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	token := decodeBody(t, rec)["data"]
	snapshot, err := f.tokens.Verify(token)
	if err != nil {
		t.Fatalf("response token did not verify: %v", err)
	}
	return snapshot
}
