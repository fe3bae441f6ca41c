package graph

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/lectorium/server/internal/apperr"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/books"
	"github.com/lectorium/server/internal/models"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/users"
)

// Resolver carries the dependencies behind the GraphQL surface.
type Resolver struct {
	Users     *users.Service
	Books     repositories.BookRepository
	Ingestor  *books.Ingestor
	Tokens    *auth.TokenIssuer
	Turnstile *auth.TurnstileVerifier
}

// authenticate verifies the session token on the Authorization header.
func (r *Resolver) authenticate(ctx context.Context) (auth.UserSnapshot, error) {
	token := bearerToken(authHeaderFrom(ctx))
	if token == "" {
		return auth.UserSnapshot{}, apperr.Unauthenticated("Unauthorized")
	}
	snapshot, err := r.Tokens.Verify(token)
	if err != nil {
		return auth.UserSnapshot{}, apperr.Unauthenticated("Unauthorized")
	}
	return snapshot, nil
}

// verifyChallenge gates the public mutations behind the bot-verification
// service; the bearer value here is a challenge token, not a session token.
func (r *Resolver) verifyChallenge(ctx context.Context) error {
	return r.Turnstile.Verify(ctx, bearerToken(authHeaderFrom(ctx)), clientIPFrom(ctx))
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func userMap(u *models.User, expiresDate string) map[string]any {
	return map[string]any{
		"id":          u.ID.String(),
		"username":    u.Username,
		"email":       u.Email,
		"photo":       u.Photo,
		"created":     u.CreatedList(),
		"currently":   u.Currently,
		"liked":       u.LikedList(),
		"expiresDate": expiresDate,
	}
}

func bookMap(b models.Book) map[string]any {
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

func tokenResponse(token string) map[string]any {
	return map[string]any{"data": token}
}

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// NewSchema wires the resolver into the executable schema.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"username":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"photo":       &graphql.Field{Type: graphql.String},
			"created":     &graphql.Field{Type: graphql.String},
			"currently":   &graphql.Field{Type: graphql.String},
			"liked":       &graphql.Field{Type: graphql.String},
			"expiresDate": &graphql.Field{Type: graphql.String},
		},
	})

	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.String},
			"author":      &graphql.Field{Type: graphql.String},
			"picture":     &graphql.Field{Type: graphql.String},
			"file":        &graphql.Field{Type: graphql.String},
			"date":        &graphql.Field{Type: graphql.String},
			"ai":          &graphql.Field{Type: graphql.Boolean},
		},
	})

	tokenResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TokenResponse",
		Fields: graphql.Fields{
			"data": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	loginCredentialsInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "LoginCredentials",
		Fields: graphql.InputObjectConfigFieldMap{
			"username": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	registerInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "RegisterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"username": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	updateUserInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UpdateUserInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"username": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"email":    &graphql.InputObjectFieldConfig{Type: graphql.String},
			"password": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"photo":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	createBookInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateBookInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":            &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"description":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"username":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"imageBase64":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"audioFilesBase64": &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"ai":               &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"books": &graphql.Field{
				Type: graphql.NewList(bookType),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: r.resolveBooks,
			},
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.resolveMe,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"loginUser": &graphql.Field{
				Type: graphql.NewNonNull(tokenResponseType),
				Args: graphql.FieldConfigArgument{
					"credentials": &graphql.ArgumentConfig{Type: graphql.NewNonNull(loginCredentialsInput)},
				},
				Resolve: r.resolveLogin,
			},
			"registerUser": &graphql.Field{
				Type: graphql.NewNonNull(tokenResponseType),
				Args: graphql.FieldConfigArgument{
					"credentials": &graphql.ArgumentConfig{Type: graphql.NewNonNull(registerInput)},
				},
				Resolve: r.resolveRegister,
			},
			"updateUser": &graphql.Field{
				Type: tokenResponseType,
				Args: graphql.FieldConfigArgument{
					"credentials": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateUserInput)},
				},
				Resolve: r.resolveUpdateUser,
			},
			"addLike": &graphql.Field{
				Type: tokenResponseType,
				Args: graphql.FieldConfigArgument{
					"bookId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.resolveAddLike,
			},
			"removeLike": &graphql.Field{
				Type: tokenResponseType,
				Args: graphql.FieldConfigArgument{
					"bookId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.resolveRemoveLike,
			},
			"createBook": &graphql.Field{
				Type: tokenResponseType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createBookInput)},
				},
				Resolve: r.resolveCreateBook,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func (r *Resolver) resolveBooks(p graphql.ResolveParams) (interface{}, error) {
	if _, err := r.authenticate(p.Context); err != nil {
		return nil, err
	}

	id := argString(p.Args, "id")
	if id == "" {
		list, err := r.Books.List(p.Context)
		if err != nil {
			return nil, apperr.From(err)
		}
		if len(list) == 0 {
			return nil, apperr.NotFound("No books found")
		}
		out := make([]map[string]any, 0, len(list))
		for _, b := range list {
			out = append(out, bookMap(b))
		}
		return out, nil
	}

	bookID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("Book not found")
	}
	book, err := r.Books.GetByID(p.Context, bookID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Book not found")
	}
	if err != nil {
		return nil, apperr.From(err)
	}
	return []map[string]any{bookMap(*book)}, nil
}

func (r *Resolver) resolveMe(p graphql.ResolveParams) (interface{}, error) {
	snapshot, err := r.authenticate(p.Context)
	if err != nil {
		return nil, err
	}

	user, err := r.Users.Me(p.Context, snapshot.ID)
	if err != nil {
		return nil, apperr.From(err)
	}
	return userMap(user, snapshot.ExpiresDate), nil
}

func (r *Resolver) resolveLogin(p graphql.ResolveParams) (interface{}, error) {
	if err := r.verifyChallenge(p.Context); err != nil {
		return nil, apperr.From(err)
	}

	credentials, _ := p.Args["credentials"].(map[string]interface{})
	token, err := r.Users.Login(p.Context, argString(credentials, "username"), argString(credentials, "password"))
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}

func (r *Resolver) resolveRegister(p graphql.ResolveParams) (interface{}, error) {
	if err := r.verifyChallenge(p.Context); err != nil {
		return nil, apperr.From(err)
	}

	credentials, _ := p.Args["credentials"].(map[string]interface{})
	token, err := r.Users.Register(p.Context,
		argString(credentials, "username"),
		argString(credentials, "email"),
		argString(credentials, "password"))
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}

func (r *Resolver) resolveUpdateUser(p graphql.ResolveParams) (interface{}, error) {
	snapshot, err := r.authenticate(p.Context)
	if err != nil {
		return nil, err
	}

	credentials, _ := p.Args["credentials"].(map[string]interface{})
	target := argString(credentials, "username")
	if target == "" {
		target = snapshot.Username
	}
	if target != snapshot.Username {
		return nil, apperr.Forbidden("You can only update your own profile")
	}

	token, err := r.Users.Update(p.Context, users.UpdateInput{
		Username: target,
		Email:    argString(credentials, "email"),
		Password: argString(credentials, "password"),
		Photo:    argString(credentials, "photo"),
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}

func (r *Resolver) likeArgs(p graphql.ResolveParams) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(argString(p.Args, "userId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.BadInput("Invalid user id")
	}
	bookID, err := uuid.Parse(argString(p.Args, "bookId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.BadInput("Invalid book id")
	}
	return userID, bookID, nil
}

func (r *Resolver) resolveAddLike(p graphql.ResolveParams) (interface{}, error) {
	if _, err := r.authenticate(p.Context); err != nil {
		return nil, err
	}

	userID, bookID, err := r.likeArgs(p)
	if err != nil {
		return nil, err
	}

	token, err := r.Users.AddLike(p.Context, userID, bookID)
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}

func (r *Resolver) resolveRemoveLike(p graphql.ResolveParams) (interface{}, error) {
	if _, err := r.authenticate(p.Context); err != nil {
		return nil, err
	}

	userID, bookID, err := r.likeArgs(p)
	if err != nil {
		return nil, err
	}

	token, err := r.Users.RemoveLike(p.Context, userID, bookID)
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}

func (r *Resolver) resolveCreateBook(p graphql.ResolveParams) (interface{}, error) {
	if _, err := r.authenticate(p.Context); err != nil {
		return nil, err
	}

	input, _ := p.Args["input"].(map[string]interface{})

	cover, err := base64.StdEncoding.DecodeString(argString(input, "imageBase64"))
	if err != nil {
		return nil, apperr.BadInput("Invalid base64 data")
	}

	var chapters [][]byte
	if raw, ok := input["audioFilesBase64"].([]interface{}); ok {
		for _, item := range raw {
			s, _ := item.(string)
			payload, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				// Undecodable chapters are skipped by the pipeline, not fatal.
				chapters = append(chapters, nil)
				continue
			}
			chapters = append(chapters, payload)
		}
	}

	ai, _ := input["ai"].(bool)

	token, err := r.Ingestor.CreateBook(p.Context, books.CreateBookInput{
		Title:       argString(input, "title"),
		Description: argString(input, "description"),
		Username:    argString(input, "username"),
		CoverImage:  cover,
		Chapters:    chapters,
		AI:          ai,
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return tokenResponse(token), nil
}
