package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/lectorium/server/internal/users"
	"github.com/lectorium/server/internal/utils"
)

// LikeHandler serves the REST liked-list mutations, which address the user by
// username rather than by session token.
type LikeHandler struct {
	Users *users.Service
}

// Handle godoc
// @Summary Add or remove a like
// @Description POST appends the book to the user's liked list, DELETE removes it. Returns a fresh session token.
// @Tags Likes
// @Accept json
// @Produce json
// @Param body body object true "{\"id\": bookId, \"username\": name}"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /auth/like [post]
func (h *LikeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		utils.JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if body.ID == "" || body.Username == "" {
		utils.JSONError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	bookID, err := uuid.Parse(body.ID)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid book id")
		return
	}

	user, err := h.Users.GetByUsername(r.Context(), body.Username)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	var token string
	if r.Method == http.MethodPost {
		token, err = h.Users.AddLike(r.Context(), user.ID, bookID)
	} else {
		token, err = h.Users.RemoveLike(r.Context(), user.ID, bookID)
	}
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}
