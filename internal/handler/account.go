package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/blog-api/internal/model"
	"github.com/sakif/blog-api/internal/service"
)

// AccountService is the part of *service.AccountService the handler uses.
type AccountService interface {
	Signup(ctx context.Context, username, password, role string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	ListAccounts(ctx context.Context) ([]model.User, error)
}

// AccountHandler serves signup, login and the account dump.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *signupRequest) fromForm(form url.Values) {
	s.Username = form.Get("username")
	s.Password = form.Get("password")
	s.Role = form.Get("role")
}

type signupResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// HandleSignup creates an account.
//
// HTTP: POST /signup
// REQUEST BODY: {"username": "alice", "password": "pw", "role": "admin"},
// or the same fields form-encoded
// 201 → {"message": "Signup successful", "user": {...}}
// 400 → username taken, or a missing username/password
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.Warn("invalid signup body", slog.String("error", err.Error()))
		writeError(w, err, errorMessages{})
		return
	}

	user, err := h.accounts.Signup(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, err, errorMessages{
			Conflict: "User already exists",
			Internal: "Error during signup",
		})
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Message: "Signup successful",
		User:    user,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (l *loginRequest) fromForm(form url.Values) {
	l.Username = form.Get("username")
	l.Password = form.Get("password")
}

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// HandleLogin checks credentials and returns a bearer token.
//
// HTTP: POST /login
// 200 → {"message": "Login successful", "token": "<jwt>", "user": {...}}
// 400 → {"message": "Invalid credentials", ...}
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.logger.Warn("invalid login body", slog.String("error", err.Error()))
		writeError(w, err, errorMessages{})
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err, errorMessages{Internal: "Server error"})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User,
	})
}

// HandleListAccounts dumps every account, stored passwords included.
//
// HTTP: GET /
//
// No authentication. This exposes every record to anyone who asks; it is
// kept because existing clients read it.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err, errorMessages{Internal: "Error fetching users"})
		return
	}
	writeJSON(w, http.StatusOK, users)
}
