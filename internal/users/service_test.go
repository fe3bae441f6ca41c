package users

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lectorium/server/internal/apperr"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
)

type memoryUserRepo struct {
	users map[string]*models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*models.User{}}
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	m.users[user.Username] = user
	return nil
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUserRepo) UpdateFields(ctx context.Context, username string, fields map[string]interface{}) error {
	u, ok := m.users[username]
	if !ok {
		return repositories.ErrNotFound
	}
	if v, ok := fields["email"].(string); ok {
		u.Email = v
	}
	if v, ok := fields["password"].(string); ok {
		u.Password = v
	}
	if v, ok := fields["photo"].(string); ok {
		u.Photo = v
	}
	return nil
}

func (m *memoryUserRepo) AddLike(ctx context.Context, userID, bookID uuid.UUID) error {
	u, err := m.GetByID(ctx, userID)
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

func (m *memoryUserRepo) RemoveLike(ctx context.Context, userID, bookID uuid.UUID) error {
	u, err := m.GetByID(ctx, userID)
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

type memoryPhotoStore struct {
	uploads map[string][]byte
	deleted []string
}

func newMemoryPhotoStore() *memoryPhotoStore {
	return &memoryPhotoStore{uploads: map[string][]byte{}}
}

func (m *memoryPhotoStore) Put(ctx context.Context, key string, blob []byte, contentType string) (string, error) {
	m.uploads[key] = blob
	return "https://cdn.example.com/" + key, nil
}

func (m *memoryPhotoStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryPhotoStore) KeyFromURL(publicURL string) (string, bool) {
	key, found := strings.CutPrefix(publicURL, "https://cdn.example.com/")
	return key, found && key != ""
}

func newTestService(t *testing.T) (*Service, *memoryUserRepo, *memoryPhotoStore) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	repo := newMemoryUserRepo()
	photos := newMemoryPhotoStore()
	svc := &Service{
		Users:           repo,
		Photos:          photos,
		Tokens:          tokens,
		DefaultPhotoURL: "https://cdn.example.com/images/users/default-profile-picture.webp",
	}
	return svc, repo, photos
}

func seedUser(t *testing.T, repo *memoryUserRepo, username, password string) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Password: auth.HashPassword(password),
		Photo:    "https://cdn.example.com/images/users/old.png",
	}
	repo.users[username] = u
	return u
}

func wantAppError(t *testing.T, err error, code apperr.Code, message string) {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an app error, got %v", err)
	}
	if appErr.Code != code || appErr.Message != message {
		t.Fatalf("got %s %q, want %s %q", appErr.Code, appErr.Message, code, message)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		username, email, password string
		message                   string
	}{
		{"empty fields", "", "", "", "All fields are required."},
		{"short username", "ab", "a@b.co", "pw", "Invalid username"},
		{"bad username chars", "bad name!", "a@b.co", "pw", "Invalid username"},
		{"bad email", "reader", "not-an-email", "pw", "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			wantAppError(t, err, apperr.CodeBadInput, tt.message)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "reader", "reader@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	snapshot, err := svc.Tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if snapshot.Username != "reader" || snapshot.Email != "reader@example.com" {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if snapshot.Photo != svc.DefaultPhotoURL {
		t.Errorf("photo = %q, want default", snapshot.Photo)
	}
	if repo.users["reader"].Password == "secret123" {
		t.Error("password stored in plain text")
	}

	if _, err := svc.Login(ctx, "reader", "secret123"); err != nil {
		t.Errorf("Login: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "reader", "pw")

	_, err := svc.Register(context.Background(), "reader", "other@example.com", "pw")
	wantAppError(t, err, apperr.CodeConflict, "Email or username already exists")
}

func TestLoginFailures(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "reader", "secret123")
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "")
	wantAppError(t, err, apperr.CodeBadInput, "Invalid credentials format")

	_, err = svc.Login(ctx, "ghost", "secret123")
	wantAppError(t, err, apperr.CodeNotFound, "User not found")

	_, err = svc.Login(ctx, "reader", "wrong")
	wantAppError(t, err, apperr.CodeUnauthenticated, "Invalid credentials")
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, photos := newTestService(t)
	seedUser(t, repo, "reader", "secret123")
	ctx := context.Background()

	photo := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	token, err := svc.Update(ctx, UpdateInput{
		Username: "reader",
		Email:    "new@example.com",
		Password: "fresh-password",
		Photo:    photo,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	snapshot, err := svc.Tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if snapshot.Email != "new@example.com" {
		t.Errorf("email = %q", snapshot.Email)
	}
	if !strings.HasPrefix(snapshot.Photo, "https://cdn.example.com/images/users/") || !strings.HasSuffix(snapshot.Photo, ".png") {
		t.Errorf("photo = %q", snapshot.Photo)
	}
	if !auth.VerifyPassword(repo.users["reader"].Password, "fresh-password") {
		t.Error("password was not rehashed")
	}
	if len(photos.deleted) != 1 || photos.deleted[0] != "images/users/old.png" {
		t.Errorf("old photo not deleted: %v", photos.deleted)
	}

	if _, err := svc.Login(ctx, "reader", "fresh-password"); err != nil {
		t.Errorf("login with the new password: %v", err)
	}
}

func TestUpdatePhotoValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "reader", "pw")
	ctx := context.Background()

	_, err := svc.Update(ctx, UpdateInput{Username: "reader", Photo: "not-a-data-url"})
	wantAppError(t, err, apperr.CodeBadInput, "Photo must be a base64 encoded image")

	gif := "data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("gif"))
	_, err = svc.Update(ctx, UpdateInput{Username: "reader", Photo: gif})
	wantAppError(t, err, apperr.CodeBadInput, "Unsupported image format. Allowed: JPEG, PNG, WebP")
}

func TestUpdateEmailTaken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "reader", "pw")
	seedUser(t, repo, "other", "pw")

	_, err := svc.Update(context.Background(), UpdateInput{Username: "reader", Email: "other@example.com"})
	wantAppError(t, err, apperr.CodeConflict, "Email already in use")
}

func TestLikes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, repo, "reader", "pw")
	ctx := context.Background()
	bookID := uuid.New()

	token, err := svc.AddLike(ctx, user.ID, bookID)
	if err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	snapshot, err := svc.Tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if snapshot.Liked != bookID.String() {
		t.Errorf("liked = %q, want %q", snapshot.Liked, bookID)
	}

	_, err = svc.AddLike(ctx, user.ID, bookID)
	wantAppError(t, err, apperr.CodeConflict, "Like has already been added.")

	token, err = svc.RemoveLike(ctx, user.ID, bookID)
	if err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	snapshot, err = svc.Tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if snapshot.Liked != "" {
		t.Errorf("liked = %q after removal", snapshot.Liked)
	}

	_, err = svc.RemoveLike(ctx, user.ID, bookID)
	wantAppError(t, err, apperr.CodeNotFound, "Book not found in liked.")

	_, err = svc.AddLike(ctx, uuid.New(), bookID)
	wantAppError(t, err, apperr.CodeNotFound, "User not found")
}
