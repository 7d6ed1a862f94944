package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"rideflow/internal/ride/domain"
	"rideflow/pkg/auth"
	"rideflow/pkg/logger"
)

// UserHandler covers registration, login, profile reads, and the
// health probe.
type UserHandler struct {
	db  *pgxpool.Pool
	jwt *auth.JWTManager
	log logger.Logger
}

func NewUserHandler(db *pgxpool.Pool, jwt *auth.JWTManager, log logger.Logger) *UserHandler {
	return &UserHandler{db: db, jwt: jwt, log: log}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type userResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Email == "" {
		writeError(w, domain.NewValidationError("email is required"))
		return
	}
	if req.Password == "" {
		writeError(w, domain.NewValidationError("password is required"))
		return
	}
	role := auth.Role(req.Role)
	if role == "" {
		role = auth.RoleRider
	}
	if role != auth.RoleRider && role != auth.RoleDriver && role != auth.RoleAdmin {
		writeError(w, domain.NewValidationError("unknown role %q", req.Role))
		return
	}

	ctx := r.Context()

	var exists bool
	if err := h.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists); err != nil {
		h.log.Error("check_user_exists_failed", err)
		writeError(w, err)
		return
	}
	if exists {
		writeError(w, domain.ErrConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("password_hash_failed", err)
		writeError(w, err)
		return
	}

	userID := uuid.NewString()
	now := time.Now()
	_, err = h.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		userID, req.Email, string(hash), string(role), req.Name, req.Phone, now,
	)
	if err != nil {
		h.log.WithFields(logger.LogFields{"email": req.Email}).Error("user_creation_failed", err)
		writeError(w, err)
		return
	}

	h.log.WithFields(logger.LogFields{
		"user_id": userID,
		"role":    string(role),
	}).Info("user_registered", "new user created")

	writeData(w, http.StatusCreated, userResponse{
		UserID:    userID,
		Email:     req.Email,
		Role:      string(role),
		CreatedAt: now,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login handles POST /auth/token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, domain.NewValidationError("email and password are required"))
		return
	}

	var (
		userID string
		hash   string
		role   string
	)
	err := h.db.QueryRow(r.Context(),
		"SELECT id, password_hash, role FROM users WHERE email = $1", req.Email,
	).Scan(&userID, &hash, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, domain.ErrForbidden)
		return
	}
	if err != nil {
		h.log.Error("user_lookup_failed", err)
		writeError(w, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, domain.ErrForbidden)
		return
	}

	token, err := h.jwt.GenerateToken(userID, auth.Role(role))
	if err != nil {
		h.log.Error("token_generation_failed", err)
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, tokenResponse{Token: token, UserID: userID, Role: role})
}

// Get handles GET /users/{id}. A user may read their own record;
// admins may read anyone's.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	userID := mux.Vars(r)["id"]
	if userID != claims.UserID && claims.Role != auth.RoleAdmin {
		writeError(w, domain.ErrForbidden)
		return
	}

	var resp userResponse
	err := h.db.QueryRow(r.Context(),
		"SELECT id, email, role, created_at FROM users WHERE id = $1", userID,
	).Scan(&resp.UserID, &resp.Email, &resp.Role, &resp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, domain.ErrNotFound)
		return
	}
	if err != nil {
		h.log.Error("user_lookup_failed", err)
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

// List handles GET /users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok || claims.Role != auth.RoleAdmin {
		writeError(w, domain.ErrForbidden)
		return
	}

	rows, err := h.db.Query(r.Context(),
		"SELECT id, email, role, created_at FROM users ORDER BY created_at DESC LIMIT 100")
	if err != nil {
		h.log.Error("user_list_failed", err)
		writeError(w, err)
		return
	}
	defer rows.Close()

	users := make([]userResponse, 0)
	for rows.Next() {
		var u userResponse
		if err := rows.Scan(&u.UserID, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			h.log.Error("user_list_failed", err)
			writeError(w, err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		h.log.Error("user_list_failed", err)
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

// Health handles GET /health.
func (h *UserHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
