// Package handler exposes the auth service over HTTP with JSON request and
// response bodies. Every response uses the same envelope: a machine-readable
// code, a human-readable message, and an optional data payload.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"member-auth-service/internal/audit"
	"member-auth-service/internal/auth/service"
	"member-auth-service/internal/event"
	memberdomain "member-auth-service/internal/member/domain"
)

// Response codes returned in the envelope.
const (
	CodeSuccess              = "SUCCESS"
	CodeRegisteredMember     = "REGISTERED_MEMBER"
	CodeWrongEmailOrPassword = "WRONG_EMAIL_OR_PASSWORD"
	CodeRefreshTokenNotFound = "REFRESH_TOKEN_NOT_FOUND"
	CodeRefreshTokenExpired  = "REFRESH_TOKEN_EXPIRED"
	CodeMemberNotFound       = "MEMBER_NOT_FOUND"
	CodeGrantTypeNotFound    = "GRANT_TYPE_NOT_FOUND"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeInternalError        = "INTERNAL_ERROR"
)

// AuthService is the service surface the handler depends on.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*memberdomain.Member, error)
	Authenticate(ctx context.Context, req service.AuthRequest) (*service.TokenPair, error)
}

// TokenValidator checks a signed access token and returns its subject.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (subject string, err error)
}

// Handler serves the auth HTTP API.
type Handler struct {
	auth      AuthService
	validator TokenValidator
	audit     audit.AuditLogger
	events    event.Emitter
}

// New returns a Handler. audit and events may be nil; both are best-effort.
func New(auth AuthService, validator TokenValidator, auditLogger audit.AuditLogger, events event.Emitter) *Handler {
	return &Handler{auth: auth, validator: validator, audit: auditLogger, events: events}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth", h.handleAuthenticate)
	mux.HandleFunc("GET /auth/validate", h.handleValidate)
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerData struct {
	MemberID string `json:"memberId"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
}

type authenticateRequest struct {
	GrantType    string `json:"grantType"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type tokenData struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	AccessExpiresAt string `json:"accessExpiresAt"`
}

type validateData struct {
	Subject string `json:"subject"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Code: CodeInvalidRequest, Message: "malformed request body"})
		return
	}

	member, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	switch {
	case err == nil:
		h.record(r, member.ID, audit.ActionMemberRegistered, event.TypeMemberRegistered, "")
		writeJSON(w, http.StatusOK, envelope{
			Code:    CodeSuccess,
			Message: "member registered",
			Data:    registerData{MemberID: member.ID, Email: member.Email, Name: member.Name},
		})
	case errors.Is(err, service.ErrAlreadyRegistered):
		h.record(r, "", audit.ActionRegisterConflict, event.TypeRegisterConflict, "")
		// A duplicate registration is a reported outcome, not an HTTP failure.
		writeJSON(w, http.StatusOK, envelope{Code: CodeRegisteredMember, Message: "email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, envelope{Code: CodeInvalidRequest, Message: "email and password are required"})
	default:
		log.Printf("register failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeInternalError, Message: "internal error"})
	}
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Code: CodeInvalidRequest, Message: "malformed request body"})
		return
	}

	pair, err := h.auth.Authenticate(r.Context(), service.AuthRequest{
		GrantType:    req.GrantType,
		Email:        req.Email,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.writeAuthError(w, r, req, err)
		return
	}

	if req.GrantType == service.GrantTypeRefreshToken {
		h.record(r, req.Email, audit.ActionTokenRefreshed, event.TypeTokenRefreshed, req.GrantType)
	} else {
		h.record(r, req.Email, audit.ActionLoginSuccess, event.TypeLoginSuccess, req.GrantType)
	}
	writeJSON(w, http.StatusOK, envelope{
		Code:    CodeSuccess,
		Message: "authenticated",
		Data: tokenData{
			AccessToken:     pair.AccessToken,
			RefreshToken:    pair.RefreshToken,
			AccessExpiresAt: pair.AccessExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// writeAuthError maps service sentinels to envelope codes and HTTP statuses.
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, req authenticateRequest, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.record(r, req.Email, audit.ActionLoginFailure, event.TypeLoginFailure, req.GrantType)
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeWrongEmailOrPassword, Message: "wrong email or password"})
	case errors.Is(err, service.ErrRefreshTokenNotFound):
		h.record(r, "", audit.ActionRefreshFailure, event.TypeRefreshFailure, req.GrantType)
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeRefreshTokenNotFound, Message: "refresh token not found"})
	case errors.Is(err, service.ErrRefreshTokenExpired):
		h.record(r, "", audit.ActionRefreshFailure, event.TypeRefreshFailure, req.GrantType)
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeRefreshTokenExpired, Message: "refresh token expired"})
	case errors.Is(err, service.ErrMemberNotFound):
		h.record(r, "", audit.ActionRefreshFailure, event.TypeRefreshFailure, req.GrantType)
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeMemberNotFound, Message: "member not found"})
	case errors.Is(err, service.ErrUnsupportedGrantType):
		writeJSON(w, http.StatusBadRequest, envelope{Code: CodeGrantTypeNotFound, Message: "unsupported grant type"})
	default:
		log.Printf("authenticate failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Code: CodeInternalError, Message: "internal error"})
	}
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		writeJSON(w, http.StatusNotFound, envelope{Code: CodeInvalidRequest, Message: "validation not configured"})
		return
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeInvalidToken, Message: "missing bearer token"})
		return
	}
	subject, err := h.validator.ValidateAccessToken(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Code: CodeInvalidToken, Message: "invalid access token"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Code: CodeSuccess, Message: "token valid", Data: validateData{Subject: subject}})
}

// record writes an audit row and emits a stream event. Both are best-effort.
func (h *Handler) record(r *http.Request, memberID, action, eventType, grantType string) {
	metadata := ""
	if grantType != "" {
		metadata = fmt.Sprintf(`{"grantType":%q}`, grantType)
	}
	if h.audit != nil {
		h.audit.LogEvent(r.Context(), memberID, action, "auth", metadata)
	}
	ev := event.AuthEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Source:    "auth-service",
		MemberID:  memberID,
		CreatedAt: time.Now().UTC(),
	}
	if metadata != "" {
		ev.Metadata = json.RawMessage(metadata)
	}
	event.EmitAsync(h.events, ev)
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
