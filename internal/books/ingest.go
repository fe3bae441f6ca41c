package books

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lectorium/server/internal/apperr"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/tts"
)

// maxChapters bounds how many chapter inputs a single request may carry;
// anything past the first 100 is ignored.
const maxChapters = 100

// Uploader stores a named blob and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, key string, blob []byte, contentType string) (string, error)
}

// CreateBookInput is one canonical request for both the REST and GraphQL
// surfaces. Chapters hold raw audio bytes, or UTF-8 text when AI is set.
type CreateBookInput struct {
	Title       string
	Description string
	Username    string
	CoverImage  []byte
	Chapters    [][]byte
	AI          bool
}

// Ingestor runs the book-creation pipeline: validate, upload the cover,
// process and upload chapters (synthesizing narration in AI mode), persist
// the book and the author's created-list append, and sign a fresh session
// token for the author.
type Ingestor struct {
	Users   repositories.UserRepository
	Books   repositories.BookRepository
	Storage Uploader
	TTS     tts.Synthesizer
	Tokens  *auth.TokenIssuer

	now func() time.Time
}

func NewIngestor(users repositories.UserRepository, books repositories.BookRepository, storage Uploader, synth tts.Synthesizer, tokens *auth.TokenIssuer) *Ingestor {
	return &Ingestor{
		Users:   users,
		Books:   books,
		Storage: storage,
		TTS:     synth,
		Tokens:  tokens,
		now:     time.Now,
	}
}

// CreateBook ingests a new book and returns a signed session token carrying
// the author's updated created list.
//
// Per-chapter transcode and decode failures are logged and skipped; the
// surviving chapters are numbered contiguously in processing order. Blobs
// already uploaded when a later step fails are not cleaned up (see DESIGN.md).
func (ing *Ingestor) CreateBook(ctx context.Context, in CreateBookInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", apperr.BadInput("Title is required.")
	}
	if strings.TrimSpace(in.Description) == "" {
		return "", apperr.BadInput("Description is required.")
	}
	if strings.TrimSpace(in.Username) == "" {
		return "", apperr.BadInput("Username is required.")
	}
	if len(in.CoverImage) == 0 {
		return "", apperr.BadInput("Image is required.")
	}
	if len(in.Chapters) == 0 {
		if in.AI {
			return "", apperr.BadInput("At least one text file is required.")
		}
		return "", apperr.BadInput("At least one audio file is required.")
	}

	user, err := ing.Users.GetByUsername(ctx, in.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", apperr.NotFound("User not found")
	}
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(in.Title)
	exists, err := ing.Books.TitleExists(ctx, title)
	if err != nil {
		return "", err
	}
	if exists {
		return "", apperr.Conflict("Title already exists")
	}

	bookID := uuid.New()
	date := ing.now().UTC().Format(time.RFC3339)

	// No book row exists yet, so a cover-upload failure aborts the request
	// without leaving partial database state.
	imageKey := fmt.Sprintf("images/books/%s.webp", bookID)
	imageURL, err := ing.Storage.Put(ctx, imageKey, in.CoverImage, "image/webp")
	if err != nil {
		return "", err
	}

	inputs := in.Chapters
	if len(inputs) > maxChapters {
		inputs = inputs[:maxChapters]
	}

	var chapters []models.Chapter
	for i, payload := range inputs {
		if len(bytes.TrimSpace(payload)) == 0 {
			continue
		}

		audio := payload
		if in.AI {
			if !utf8.Valid(payload) {
				log.Printf("books: chapter %d is not valid UTF-8 text, skipping", i+1)
				continue
			}
			audio, err = ing.TTS.Synthesize(ctx, string(payload))
			if err != nil {
				log.Printf("books: speech synthesis failed for chapter %d: %v", i+1, err)
				continue
			}
		}

		// Seq numbers the uploaded chapters 1..K contiguously; a skipped
		// input leaves no gap.
		seq := len(chapters) + 1
		fileKey := fmt.Sprintf("file/books/%s-%d.mp3", bookID, seq)
		fileURL, err := ing.Storage.Put(ctx, fileKey, audio, "audio/mpeg")
		if err != nil {
			log.Printf("books: upload failed for chapter %d: %v", i+1, err)
			continue
		}

		chapters = append(chapters, models.Chapter{
			ID:     uuid.New(),
			BookID: bookID,
			Seq:    seq,
			URL:    fileURL,
		})
	}

	if len(chapters) == 0 {
		return "", apperr.BadInput("No valid files were processed.")
	}

	book := &models.Book{
		ID:          bookID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Author:      user.Username,
		Picture:     imageURL,
		Date:        date,
		AI:          in.AI,
		Chapters:    chapters,
	}

	if err := ing.Books.CreateWithAuthorship(ctx, book, user.ID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return "", apperr.Conflict("Title already exists")
		}
		return "", err
	}

	// The token payload is the pre-update snapshot merged with the updated
	// created list.
	snapshot := auth.SnapshotUser(user)
	if snapshot.Created != "" {
		snapshot.Created = snapshot.Created + ", " + bookID.String()
	} else {
		snapshot.Created = bookID.String()
	}

	return ing.Tokens.Issue(snapshot)
}

// ReadChapterPayloads drains the chapter inputs concurrently, preserving
// input order. An input that fails to open or read yields a nil payload,
// which the pipeline later skips like any other unusable chapter.
func ReadChapterPayloads(open []func() (io.ReadCloser, error)) [][]byte {
	payloads := make([][]byte, len(open))

	var g errgroup.Group
	for i, opener := range open {
		g.Go(func() error {
			src, err := opener()
			if err != nil {
				log.Printf("books: opening chapter %d failed: %v", i+1, err)
				return nil
			}
			defer src.Close()

			data, err := io.ReadAll(src)
			if err != nil {
				log.Printf("books: reading chapter %d failed: %v", i+1, err)
				return nil
			}
			payloads[i] = data
			return nil
		})
	}
	_ = g.Wait()

	return payloads
}
