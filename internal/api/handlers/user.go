package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lectorium/server/internal/users"
	"github.com/lectorium/server/internal/utils"
)

// UserHandler serves the REST account flows: credential login (GET),
// registration (POST) and profile editing (PUT).
type UserHandler struct {
	Users *users.Service
}

func (h *UserHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.login(w, r)
	case http.MethodPost:
		h.register(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		utils.JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// login godoc
// @Summary Log in with basic credentials
// @Description Reads base64 "username:password" from the Credentials header and returns a session token.
// @Tags Users
// @Produce json
// @Param Credentials header string true "base64(username:password)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/user [get]
func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	credentialsHeader := r.Header.Get("Credentials")
	if credentialsHeader == "" {
		utils.JSONError(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(credentialsHeader)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid Base64 encoding")
		return
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok || username == "" || password == "" {
		utils.JSONError(w, http.StatusBadRequest, "Invalid credentials format")
		return
	}

	token, err := h.Users.Login(r.Context(), username, password)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}

// register godoc
// @Summary Register a new account
// @Tags Users
// @Accept json
// @Produce json
// @Param body body object true "{\"username\": ..., \"email\": ..., \"password\": ...}"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /auth/user [post]
func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if body.Username == "" || body.Email == "" || body.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	token, err := h.Users.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}

// update godoc
// @Summary Edit account details
// @Description Multipart form with username plus optional email, password/confirmPassword and photo data URL.
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /auth/user [put]
func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	password := r.FormValue("password")
	if password != "" && password != r.FormValue("confirmPassword") {
		utils.JSONError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	token, err := h.Users.Update(r.Context(), users.UpdateInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: password,
		Photo:    r.FormValue("photo"),
	})
	if err != nil {
		utils.JSONAppError(w, err)
		return
	}

	utils.JSONData(w, http.StatusOK, token)
}
