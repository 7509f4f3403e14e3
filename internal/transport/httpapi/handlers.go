package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/adapter/chesspresenter"
	"github.com/park285/chess-coach/internal/auth"
	"github.com/park285/chess-coach/internal/chess"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/internal/profile"
	"github.com/park285/chess-coach/pkg/chessdto"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedJSON  = errors.New("malformed json")
	errFenSanRequired = errors.New("fen and san are required")
	errForbidden      = errors.New("admin credential required")
	errMissingToken   = errors.New("bearer token required")
	errNotFound       = errors.New("not found")
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	rooms := 0
	if s.deps.Rooms != nil {
		rooms = len(s.deps.Rooms.Rooms())
	}
	writeJSON(w, http.StatusOK, chessdto.HealthResponse{
		Status:      "ok",
		Rooms:       rooms,
		Engine:      s.deps.EngineEnabled,
		EngineDepth: s.deps.EngineDepth,
	})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToDTOProfile(p))
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rooms == nil {
		writeError(w, errNotFound)
		return
	}
	st, ok := s.deps.Rooms.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) bots(w http.ResponseWriter, r *http.Request) {
	dynamic, err := s.deps.Profiles.BotProfiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.BotsResponse{
		Preset:  chesspresenter.ToDTOBots(chess.Presets()),
		Dynamic: chesspresenter.ToDTOProfiles(dynamic),
	})
}

func (s *Server) analyzeMove(w http.ResponseWriter, r *http.Request) {
	var req chessdto.AnalyzeMoveRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.FEN) == "" || strings.TrimSpace(req.SAN) == "" {
		writeError(w, errFenSanRequired)
		return
	}
	res, err := s.deps.Coach.Analyze(r.Context(), req.FEN, strings.TrimSpace(req.SAN))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chesspresenter.ToDTOAnalysis(res))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req chessdto.UpdateProfileRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if s.deps.AdminRequiredForProfile {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(req.AdminCredential)
		}
		if s.deps.Auth == nil || !s.deps.Auth.Validate(r.Context(), token) {
			writeError(w, errForbidden)
			return
		}
	}
	res, err := s.deps.Profiles.Save(r.Context(), profile.SaveRequest{
		PlayerA:   req.PlayerA,
		PlayerB:   req.PlayerB,
		GameType:  req.GameType,
		BotRating: req.BotRating,
		Moves:     chesspresenter.FromDTOHistory(req.Moves),
		ResultA:   req.ResultA,
		ResultB:   req.ResultB,
		AvgLossA:  req.AvgLossA,
		AvgLossB:  req.AvgLossB,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.UpdateProfileResponse{ID: res.ID, Profile: chesspresenter.ToDTOProfile(res.Profile)})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req chessdto.AdminLoginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if s.deps.Auth == nil {
		writeError(w, auth.ErrInvalidCredentials)
		return
	}
	token, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.AdminLoginResponse{Token: token, Username: req.Username})
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, errMissingToken)
		return
	}
	if s.deps.Auth != nil {
		if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errMalformedJSON
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		obslog.L().Debug("http_write_failed", zap.Error(err))
	}
}

// writeError maps package errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errMalformedJSON),
		errors.Is(err, errFenSanRequired),
		errors.Is(err, profile.ErrNamesRequired),
		errors.Is(err, chess.ErrInvalidFEN):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, errMissingToken):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, errForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, errNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, profile.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	default:
		obslog.L().Error("http_internal_error", zap.Error(err))
	}
	writeJSON(w, status, chessdto.ErrorResponse{Error: msg})
}
