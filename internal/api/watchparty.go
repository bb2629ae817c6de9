package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/watchparty/server/internal/catalog"
	"github.com/watchparty/server/internal/config"
	"github.com/watchparty/server/internal/database"
	"github.com/watchparty/server/internal/server"
	"github.com/watchparty/server/internal/session"
)

type WatchPartyApp struct {
	log            *log.Logger
	db             database.WatchPartyRepository
	catalog        *catalog.Service
	registry       *session.Registry
	ws             *server.WatchServer
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewWatchPartyApp(mux *http.ServeMux, logger *log.Logger, ws *server.WatchServer, reg *session.Registry,
	cat *catalog.Service, db database.WatchPartyRepository, cfg *config.Config) *WatchPartyApp {
	s := &WatchPartyApp{
		log:            logger,
		db:             db,
		catalog:        cat,
		registry:       reg,
		ws:             ws,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.endRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRooms))
	mux.Handle("GET /api/movies", s.authMiddleware(s.getMovies))
	mux.Handle("POST /api/purchases", s.authMiddleware(s.createPurchase))
	mux.Handle("GET /api/library", s.authMiddleware(s.getLibrary))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *WatchPartyApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *WatchPartyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *WatchPartyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
