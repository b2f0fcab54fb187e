package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tiffindesk/api/internal/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// StaffAccount is the single kitchen login configured for the deployment.
// An empty PasswordHash disables login.
type StaffAccount struct {
	Username     string
	PasswordHash string
}

// TokenIssuer signs and checks staff tokens. Satisfied by *auth.Signer.
type TokenIssuer interface {
	Issue(st auth.Staff) (auth.TokenPair, error)
	Verify(tokenStr string, kind auth.Kind) (*auth.Claims, error)
}

// AuthHandler signs the staff account in and refreshes its tokens.
type AuthHandler struct {
	staff  StaffAccount
	tokens TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(staff StaffAccount, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{staff: staff, tokens: tokens, logger: logger}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	auth.TokenPair
	User auth.Staff `json:"user"`
}

// --- Handlers ---

// Login checks the staff username and bcrypt password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		badRequest(w, "username and password are required")
		return
	}

	if !h.checkPassword(req.Username, req.Password) {
		h.logger.Warn("staff login rejected", zap.String("username", req.Username))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	h.respondWithTokens(w, auth.NewStaff(h.staff.Username))
}

func (h *AuthHandler) checkPassword(username, password string) bool {
	if h.staff.PasswordHash == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(h.staff.Username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h.staff.PasswordHash), []byte(password)) == nil
}

// Refresh exchanges a refresh token for a new pair. Tokens issued for a
// username that is no longer configured are refused.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		badRequest(w, "refresh_token is required")
		return
	}

	claims, err := h.tokens.Verify(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	current := auth.NewStaff(h.staff.Username)
	if claims.Staff().ID != current.ID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	h.respondWithTokens(w, current)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, st auth.Staff) {
	pair, err := h.tokens.Issue(st)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{TokenPair: pair, User: st})
}
