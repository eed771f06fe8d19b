package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sessionTTL = 6 * time.Hour

type handler struct {
	secureCookies bool
}

func (h *handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     "session_id",
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.secureCookies {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// startSession replaces any existing session for the user.
func (h *handler) startSession(w http.ResponseWriter, userID string) error {
	session := Session{
		SessionID: utils.GenerateUUID(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	err := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "expires_at"}),
	}).Create(&session).Error
	if err != nil {
		return err
	}
	http.SetCookie(w, h.sessionCookie(session.SessionID, session.ExpiresAt))
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NormalizeEmail is the canonical form used for the unique email index.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type registerRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

func (h *handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = NormalizeEmail(req.Email)

	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	// Check if email is taken
	var existing User
	err := db.DB.Select("user_id").First(&existing, "email = ?", req.Email).Error
	if err == nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, utils.Store("lookup email", err))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}

	user := User{
		UserID:         utils.GenerateUUID(),
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: string(hashed),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		utils.WriteError(w, r, utils.Store("create user", err))
		return
	}
	logrus.WithField("email", user.Email).Info("new user created")

	// Log the new user in straight away.
	if err := h.startSession(w, user.UserID); err != nil {
		logrus.WithError(err).WithField("user_id", user.UserID).Warn("auto-login after signup failed")
	}

	utils.WriteJSONStatus(w, http.StatusCreated, map[string]string{
		"user_id": user.UserID,
		"email":   user.Email,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	req.Email = NormalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	log := logrus.WithFields(logrus.Fields{"email": req.Email, "ip": utils.ClientIP(r)})

	var user User
	if err := db.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		log.Warn("login attempt for unknown user")
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Warn("failed login attempt")
		http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
		return
	}

	if err := h.startSession(w, user.UserID); err != nil {
		utils.WriteError(w, r, utils.Store("start session", err))
		return
	}

	if user.Role == "admin" {
		log.Warn("admin user logged in")
	} else {
		log.Info("user logged in")
	}

	utils.WriteJSON(w, map[string]string{
		"user_id":    user.UserID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"role":       user.Role,
	})
}

func (h *handler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_id")
	if err != nil {
		http.Error(w, "Couldn't find cookie", http.StatusUnauthorized)
		return
	}

	if err := db.DB.Where("session_id = ?", cookie.Value).Delete(&Session{}).Error; err != nil {
		utils.WriteError(w, r, utils.Store("delete session", err))
		return
	}

	expired := h.sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	utils.WriteJSON(w, map[string]string{"message": "Logout successful"})
}

type MeResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (h *handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, MeResponse{
		UserID:    user.UserID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req updatePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	var user User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusUnauthorized)
		return
	}

	// Make sure user's current password matches stored hash before updating
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.CurrentPassword)); err != nil {
		http.Error(w, "Invalid current password", http.StatusUnauthorized)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error hashing password", http.StatusInternalServerError)
		return
	}

	if err := db.DB.Model(&user).Update("hashed_password", string(hashed)).Error; err != nil {
		utils.WriteError(w, r, utils.Store("update password", err))
		return
	}

	utils.WriteJSON(w, map[string]string{"message": "Password updated"})
}

// AdminDashboard reports user counts for the admin portal.
func (h *handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	var total, admins int64
	if err := db.DB.Model(&User{}).Count(&total).Error; err != nil {
		utils.WriteError(w, r, utils.Store("count users", err))
		return
	}
	if err := db.DB.Model(&User{}).Where("role = ?", "admin").Count(&admins).Error; err != nil {
		utils.WriteError(w, r, utils.Store("count admins", err))
		return
	}

	utils.WriteJSON(w, map[string]int64{
		"total_users":   total,
		"admin_users":   admins,
		"regular_users": total - admins,
	})
}
