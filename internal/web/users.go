package web

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/inklet/inklet/internal/db"
	"github.com/inklet/inklet/internal/models"
	"github.com/inklet/inklet/pkg/config"
	"github.com/inklet/inklet/pkg/logging"
)

const loginPath = "/auth/login/"

// UsersHandler serves the minimal credential routes: sign-up, sign-in and
// sign-out. Anything beyond that (password reset, email confirmation) is an
// external concern.
type UsersHandler struct {
	users    *db.UserRepository
	sessions SessionStore
	render   Renderer
	errs     *errorPages
	session  config.SessionConfig
	logger   *zap.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(repo *db.Repository, sessions SessionStore, render Renderer, errs *errorPages, session config.SessionConfig) *UsersHandler {
	return &UsersHandler{
		users:    db.NewUserRepository(repo),
		sessions: sessions,
		render:   render,
		errs:     errs,
		session:  session,
		logger:   logging.WithComponent("web-users"),
	}
}

func (h *UsersHandler) signIn(c *gin.Context, user *models.User) error {
	token, err := h.sessions.Create(c.Request.Context(), user.ID, h.session.TTL)
	if err != nil {
		return err
	}
	c.SetCookie(h.session.CookieName, token, int(h.session.TTL.Seconds()), "/", "", false, true)
	return nil
}

// SignupForm handles GET /auth/signup/
func (h *UsersHandler) SignupForm(c *gin.Context) {
	h.render.HTML(c, http.StatusOK, "users/signup.html", gin.H{
		"formErrors": map[string]string{},
	})
}

// Signup handles POST /auth/signup/: creates the user, signs them in and
// sends them to the index.
func (h *UsersHandler) Signup(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	formErrors := map[string]string{}
	if username == "" {
		formErrors["username"] = "Username is required"
	}
	if len(password) < 8 {
		formErrors["password"] = "Password must be at least 8 characters"
	}
	if len(formErrors) > 0 {
		h.render.HTML(c, http.StatusOK, "users/signup.html", gin.H{"formErrors": formErrors})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if display := strings.TrimSpace(c.PostForm("display_name")); display != "" {
		user.DisplayName = sql.NullString{String: display, Valid: true}
	}
	if email := strings.TrimSpace(c.PostForm("email")); email != "" {
		user.Email = sql.NullString{String: email, Valid: true}
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errorsIsConstraint(err) {
			formErrors["username"] = "Username is already taken"
			h.render.HTML(c, http.StatusOK, "users/signup.html", gin.H{"formErrors": formErrors})
			return
		}
		h.errs.serverError(c, err)
		return
	}

	if err := h.signIn(c, user); err != nil {
		h.errs.serverError(c, err)
		return
	}

	h.logger.Info("User signed up", zap.String("username", user.Username))
	c.Redirect(http.StatusFound, "/")
}

// LoginForm handles GET /auth/login/
func (h *UsersHandler) LoginForm(c *gin.Context) {
	h.render.HTML(c, http.StatusOK, "users/login.html", gin.H{
		"next":       c.Query("next"),
		"formErrors": map[string]string{},
	})
}

// Login handles POST /auth/login/
func (h *UsersHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")

	user, err := h.users.GetByUsername(c.Request.Context(), username)
	if err != nil {
		h.errs.serverError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		h.render.HTML(c, http.StatusOK, "users/login.html", gin.H{
			"next":       next,
			"formErrors": map[string]string{"username": "Invalid username or password"},
		})
		return
	}

	if err := h.signIn(c, user); err != nil {
		h.errs.serverError(c, err)
		return
	}

	// Only follow relative deep links back out of the sign-in flow
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

// Logout handles GET /auth/logout/
func (h *UsersHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.session.CookieName); err == nil && token != "" {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			h.logger.Warn("Failed to delete session", zap.Error(err))
		}
	}
	c.SetCookie(h.session.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}
