package graph

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/lectorium/server/internal/api/middleware"
	"github.com/lectorium/server/internal/utils"
)

// Handler executes GraphQL requests against the schema.
type Handler struct {
	schema graphql.Schema
}

func NewHandler(r *Resolver) (*Handler, error) {
	schema, err := NewSchema(r)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		payload.Query = q.Get("query")
		payload.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &payload.Variables); err != nil {
				utils.JSONError(w, http.StatusBadRequest, "Invalid variables")
				return
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}
	default:
		utils.JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if payload.Query == "" {
		utils.JSONError(w, http.StatusBadRequest, "Query is required")
		return
	}

	ctx := WithRequestMeta(r.Context(), r.Header.Get("Authorization"), middleware.ClientIP(r))

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  payload.Query,
		OperationName:  payload.OperationName,
		VariableValues: payload.Variables,
		Context:        ctx,
	})

	utils.JSON(w, http.StatusOK, result)
}
