package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnabBaruah009/sms-nucleus/internal/config"
	"github.com/arnabBaruah009/sms-nucleus/internal/crypto"
	"github.com/arnabBaruah009/sms-nucleus/internal/model"
	"github.com/arnabBaruah009/sms-nucleus/internal/ratelimit"
	"github.com/arnabBaruah009/sms-nucleus/internal/repository"
	"github.com/arnabBaruah009/sms-nucleus/internal/session"
)

type Server struct {
	cfg      config.Config
	store    *repository.Store
	sessions *session.Manager
	limiter  *ratelimit.LoginLimiter
}

func NewServer(cfg config.Config, store *repository.Store, sessions *session.Manager, limiter *ratelimit.LoginLimiter) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		limiter:  limiter,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/auth/logout", s.handleLogout)

	r.Route("/auth/allow-list", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireAdmin)
		r.Get("/", s.handleListAllowList)
		r.Post("/", s.handleCreateAllowList)
		r.Delete("/{id}", s.handleDeleteAllowList)
	})

	r.With(s.authMiddleware).Get("/user/profile", s.handleGetProfile)
	r.With(s.authMiddleware).Patch("/user/profile", s.handleUpdateProfile)

	return r
}

type authPayload struct {
	Phone    string  `json:"phone"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Email    *string `json:"email"`
}

type registerRequest struct {
	User authPayload `json:"user"`
}

type registerResponse struct {
	RegistrationStatus bool    `json:"registrationStatus"`
	Error              *string `json:"error"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	phone := normalizePhone(req.User.Phone)
	if phone == "" || req.User.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	// TODO: consult the allow list before creating the account once the
	// enforcement point is agreed; today the list is admin-managed only.
	_, err := s.store.GetUserByPhone(r.Context(), phone)
	if err == nil {
		writeError(w, http.StatusBadRequest, "user_already_exists")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("register lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	hash, err := crypto.HashPassword(req.User.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	var email *string
	if req.User.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*req.User.Email))
		if normalized != "" {
			email = &normalized
		}
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.User.Name),
		PhoneNumber:  phone,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		// Verification flow is not wired yet; accounts start verified.
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		log.Printf("register create failed: %v", err)
		writeError(w, http.StatusBadRequest, "user_create_failed")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{RegistrationStatus: true})
}

type loginRequest struct {
	User authPayload `json:"user"`
}

type loginResponse struct {
	Data loginData `json:"data"`
}

type loginData struct {
	AccessToken     string `json:"accessToken"`
	SchoolID        string `json:"schoolId"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	phone := normalizePhone(req.User.Phone)
	if phone == "" || req.User.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), phone)
	if err != nil {
		log.Printf("login limiter error: %v", err)
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "too_many_attempts")
		return
	}

	user, err := s.store.GetUserByPhone(r.Context(), phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		log.Printf("login lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := crypto.CheckPassword(user.PasswordHash, req.User.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := s.sessions.IssueOrReuse(r.Context(), user.ID, r.UserAgent(), ssoAgent(r))
	if err != nil {
		log.Printf("session issue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	if err := s.limiter.Reset(r.Context(), phone); err != nil {
		log.Printf("login limiter reset error: %v", err)
	}

	schoolID := ""
	if user.SchoolID != nil {
		schoolID = *user.SchoolID
	}
	writeJSON(w, http.StatusOK, loginResponse{Data: loginData{
		AccessToken:     token,
		SchoolID:        schoolID,
		IsEmailVerified: user.IsEmailVerified,
	}})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := s.sessions.Invalidate(r.Context(), token); err != nil {
		log.Printf("logout failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

type allowListSummary struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	CreatedBy string `json:"createdBy"`
	CreatedOn int64  `json:"createdOn"`
}

func mapAllowListSummary(entry model.AllowListEntry) allowListSummary {
	return allowListSummary{
		ID:        entry.ID,
		Phone:     entry.Phone,
		CreatedBy: entry.CreatedBy,
		CreatedOn: entry.CreatedAt.Unix(),
	}
}

func (s *Server) handleListAllowList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAllowList(r.Context())
	if err != nil {
		log.Printf("allow list query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]allowListSummary, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, mapAllowListSummary(entry))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createAllowListRequest struct {
	AllowList struct {
		Phone string `json:"phone"`
	} `json:"allowList"`
}

func (s *Server) handleCreateAllowList(w http.ResponseWriter, r *http.Request) {
	caller := userFromContext(r.Context())
	if caller == nil {
		s.writeAuthRequired(w)
		return
	}

	var req createAllowListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	phone := normalizePhone(req.AllowList.Phone)
	if phone == "" {
		writeError(w, http.StatusBadRequest, "missing_phone")
		return
	}

	_, err := s.store.GetActiveAllowListByPhone(r.Context(), phone)
	if err == nil {
		writeError(w, http.StatusBadRequest, "phone_already_allowed")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("allow list lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	entry := model.AllowListEntry{
		ID:        uuid.NewString(),
		Phone:     phone,
		CreatedBy: caller.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAllowListEntry(r.Context(), entry); err != nil {
		log.Printf("allow list create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapAllowListSummary(entry))
}

func (s *Server) handleDeleteAllowList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id")
		return
	}

	entry, err := s.store.SoftDeleteAllowListEntry(r.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "allow_list_not_found")
			return
		}
		log.Printf("allow list delete failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapAllowListSummary(entry))
}

type profileSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Email           *string `json:"email,omitempty"`
	Role            string  `json:"role"`
	SchoolID        *string `json:"schoolId,omitempty"`
	Gender          *string `json:"gender,omitempty"`
	AvatarURL       *string `json:"avatarUrl,omitempty"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	CreatedOn       int64   `json:"createdOn"`
}

func mapProfileSummary(user model.User) profileSummary {
	return profileSummary{
		ID:              user.ID,
		Name:            user.Name,
		Phone:           user.PhoneNumber,
		Email:           user.Email,
		Role:            user.Role,
		SchoolID:        user.SchoolID,
		Gender:          user.Gender,
		AvatarURL:       user.AvatarURL,
		IsEmailVerified: user.IsEmailVerified,
		CreatedOn:       user.CreatedAt.Unix(),
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		s.writeAuthRequired(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]profileSummary{"data": mapProfileSummary(*user)})
}

type updateProfileRequest struct {
	Profile struct {
		Name      *string `json:"name,omitempty"`
		AvatarURL *string `json:"avatarUrl,omitempty"`
		Gender    *string `json:"gender,omitempty"`
		Role      *string `json:"role,omitempty"`
	} `json:"profile"`
}

type updateProfileResponse struct {
	Data        profileSummary `json:"data"`
	AccessToken string         `json:"accessToken,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		s.writeAuthRequired(w)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	update := repository.UserUpdate{}
	if req.Profile.Name != nil {
		name := strings.TrimSpace(*req.Profile.Name)
		if name != "" {
			update.Name = &name
		}
	}
	if req.Profile.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.Profile.AvatarURL)
		if avatar != "" {
			update.AvatarURL = &avatar
		}
	}
	if req.Profile.Gender != nil {
		gender := strings.TrimSpace(strings.ToLower(*req.Profile.Gender))
		if gender != "" {
			update.Gender = &gender
		}
	}
	roleChanged := false
	if req.Profile.Role != nil {
		role := strings.TrimSpace(strings.ToLower(*req.Profile.Role))
		if !model.IsValidRole(role) {
			writeError(w, http.StatusBadRequest, "invalid_role")
			return
		}
		if role != user.Role {
			update.Role = &role
			roleChanged = true
		}
	}

	updated, err := s.store.UpdateUser(r.Context(), user.ID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		log.Printf("profile update failed: %v", err)
		writeError(w, http.StatusBadRequest, "update_failed")
		return
	}

	resp := updateProfileResponse{Data: mapProfileSummary(updated)}
	if roleChanged {
		// The old token carries stale role claims; rotate it in place so
		// the client does not have to log in again.
		token := bearerToken(r.Header.Get("Authorization"))
		rotated, err := s.sessions.Rotate(r.Context(), token, updated.ID)
		if err != nil {
			log.Printf("session rotate failed: %v", err)
			writeError(w, http.StatusInternalServerError, "token_error")
			return
		}
		resp.AccessToken = rotated
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.writeAuthRequired(w)
			return
		}

		user, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotAuthenticated) {
				s.writeAuthRequired(w)
				return
			}
			log.Printf("token resolution failed: %v", err)
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, &user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || user.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func userFromContext(ctx context.Context) *model.User {
	value := ctx.Value(userKey{})
	user, _ := value.(*model.User)
	return user
}

func (s *Server) writeAuthRequired(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":      "not_authenticated",
		"redirectTo": s.cfg.DefaultFrontendURL + "/auth/login",
	})
}

func normalizePhone(phone string) string {
	return strings.TrimSpace(strings.ToLower(phone))
}

func ssoAgent(r *http.Request) string {
	if agent := strings.TrimSpace(r.Header.Get("X-SSO-Agent")); agent != "" {
		return agent
	}
	return session.DefaultAgent
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
