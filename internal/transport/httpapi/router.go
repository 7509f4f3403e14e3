// Package httpapi serves the JSON endpoints and mounts the real-time socket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/auth"
	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/domain"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/internal/profile"
	"github.com/park285/chess-coach/pkg/chessdto"
)

// MoveAnalyzer judges a played move. *coach.Service implements it.
type MoveAnalyzer interface {
	Analyze(ctx context.Context, fen, san string) (chess.AnalysisResult, error)
}

// ProfileService persists finished games. *profile.Service implements it.
type ProfileService interface {
	Save(ctx context.Context, req profile.SaveRequest) (profile.SaveResult, error)
	BotProfiles(ctx context.Context) ([]*domain.RatingProfile, error)
	Get(ctx context.Context, id string) (*domain.RatingProfile, error)
}

// RoomLister reports live rooms. *room.Manager implements it.
type RoomLister interface {
	Rooms() []string
	Snapshot(roomID string) (chessdto.RoomState, bool)
}

type Deps struct {
	Coach    MoveAnalyzer
	Profiles ProfileService
	Auth     *auth.Authenticator
	Rooms    RoomLister
	// Socket serves the real-time channel at /ws when set.
	Socket http.Handler

	EngineEnabled bool
	EngineDepth   int
	// AdminRequiredForProfile makes update-profile demand a valid admin token.
	AdminRequiredForProfile bool
}

type Server struct {
	deps Deps
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	s := &Server{deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Get("/bots", s.bots)
		r.Get("/profiles/{id}", s.getProfile)
		r.Get("/rooms/{id}", s.getRoom)
		r.Post("/analyze-move", s.analyzeMove)
		r.Post("/update-profile", s.updateProfile)
		r.Post("/admin-login", s.adminLogin)
		r.Post("/admin-logout", s.adminLogout)
	})
	if d.Socket != nil {
		r.Handle("/ws", d.Socket)
	}
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		// upgraded sockets log their own lifecycle
		if r.URL.Path == "/ws" {
			return
		}
		obslog.L().Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
