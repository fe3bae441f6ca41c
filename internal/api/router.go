package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/lectorium/server/docs"

	"github.com/lectorium/server/internal/api/graph"
	"github.com/lectorium/server/internal/api/handlers"
	"github.com/lectorium/server/internal/api/middleware"
	"github.com/lectorium/server/internal/auth"
	"github.com/lectorium/server/internal/books"
	"github.com/lectorium/server/internal/config"
	"github.com/lectorium/server/internal/repositories"
	"github.com/lectorium/server/internal/users"
)

// Deps bundles the services the routes are built on.
type Deps struct {
	Users     *users.Service
	Books     repositories.BookRepository
	Ingestor  *books.Ingestor
	Tokens    *auth.TokenIssuer
	Turnstile *auth.TurnstileVerifier
}

func SetupRouter(cfg config.Config, deps Deps) (http.Handler, error) {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// 60 requests per minute per client IP across the API surface.
	limiter := middleware.NewIPRateLimiter(60, time.Minute, 10, 3*time.Minute)
	rateLimit := middleware.RateLimit(limiter)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	// ---------- GRAPHQL ----------
	gqlHandler, err := graph.NewHandler(&graph.Resolver{
		Users:     deps.Users,
		Books:     deps.Books,
		Ingestor:  deps.Ingestor,
		Tokens:    deps.Tokens,
		Turnstile: deps.Turnstile,
	})
	if err != nil {
		return nil, err
	}
	mainMux.Handle("/api/graphql", rateLimit(gqlHandler))

	// ---------- REST: account and likes ----------
	userHandler := &handlers.UserHandler{Users: deps.Users}
	likeHandler := &handlers.LikeHandler{Users: deps.Users}

	authMux := http.NewServeMux()
	authMux.HandleFunc("/user", userHandler.Handle)
	authMux.HandleFunc("/like", likeHandler.Handle)

	mainMux.Handle("/api/auth/",
		http.StripPrefix("/api/auth",
			rateLimit(middleware.StaticBearer(cfg.ClientAuthSecret)(authMux)),
		),
	)

	// ---------- REST: book ingestion and catalogue ----------
	bookHandler := &handlers.BookHandler{Books: deps.Books, Ingestor: deps.Ingestor}

	dataMux := http.NewServeMux()
	dataMux.HandleFunc("/book", bookHandler.Handle)
	dataMux.HandleFunc("/ai", bookHandler.HandleAI)

	mainMux.Handle("/api/data/",
		http.StripPrefix("/api/data",
			middleware.StaticBearer(cfg.BookAuthSecret)(dataMux),
		),
	)

	log.Println("Router initialized")
	handler := c.Handler(mainMux)
	handler = metrics.Handler(handler)
	handler = middleware.Logger(handler)
	return handler, nil
}
