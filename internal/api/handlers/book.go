package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lectorium/server/internal/books"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/utils"
)

const maxUploadSize = 100 << 20 // 100 MB

// BookHandler serves the REST book catalogue and both book-creation variants
// (uploaded audio, AI-narrated text).
type BookHandler struct {
	Books    repositories.BookRepository
	Ingestor *books.Ingestor
}

func (h *BookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		utils.JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func bookJSON(b models.Book) map[string]any {
	return map[string]any{
		"id":          b.ID.String(),
		"title":       b.Title,
		"description": b.Description,
		"author":      b.Author,
		"picture":     b.Picture,
		"file":        b.FileList(),
		"date":        b.Date,
		"ai":          b.AI,
	}
}

// get godoc
// @Summary Fetch the catalogue or a single book
// @Tags Books
// @Produce json
// @Param id query string false "Book id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /data/book [get]
func (h *BookHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	if id == "" {
		list, err := h.Books.List(r.Context())
		if err != nil {
			utils.JSONAppError(w, err)
			return
		}
		if len(list) == 0 {
			utils.JSONError(w, http.StatusNotFound, "No books found")
			return
		}

		out := make([]map[string]any, 0, len(list))
		for _, b := range list {
			out = append(out, bookJSON(b))
		}
		utils.JSON(w, http.StatusOK, out)
		return
	}

	bookID, err := uuid.Parse(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}

	book, err := h.Books.GetByID(r.Context(), bookID)
	if errors.Is(err, repositories.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "Book not found")
		return
	}
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, bookJSON(*book))
}

// create godoc
// @Summary Create a book from uploaded audio
// @Description Multipart form with title, description, username, cover image and one or more audio chapters. Returns a fresh session token.
// @Tags Books
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /data/book [post]
func (h *BookHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	cover, err := formFileBytes(r, "image")
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Image is required.")
		return
	}

	chapters := books.ReadChapterPayloads(openers(r.MultipartForm.File["audio"]))

	token, err := h.Ingestor.CreateBook(r.Context(), books.CreateBookInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Username:    r.FormValue("username"),
		CoverImage:  cover,
		Chapters:    chapters,
		AI:          false,
	})
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}

// HandleAI godoc
// @Summary Create a book narrated from text chapters
// @Description Multipart form with title, description, username, cover image and one or more .txt chapter files to synthesize.
// @Tags Books
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /data/ai [post]
func (h *BookHandler) HandleAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	cover, err := formFileBytes(r, "image")
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Image is required.")
		return
	}

	// Text chapters arrive as .txt files under arbitrary field names.
	var textFiles []*multipart.FileHeader
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			if strings.HasSuffix(fh.Filename, ".txt") {
				textFiles = append(textFiles, fh)
			}
		}
	}

	chapters := books.ReadChapterPayloads(openers(textFiles))

	token, err := h.Ingestor.CreateBook(r.Context(), books.CreateBookInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Username:    r.FormValue("username"),
		CoverImage:  cover,
		Chapters:    chapters,
		AI:          true,
	})
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}

func formFileBytes(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func openers(headers []*multipart.FileHeader) []func() (io.ReadCloser, error) {
	out := make([]func() (io.ReadCloser, error), 0, len(headers))
	for _, fh := range headers {
		out = append(out, func() (io.ReadCloser, error) { return fh.Open() })
	}
	return out
}
