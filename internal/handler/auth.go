package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"finance-portal/internal/middleware"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves login, logout and the current session.
type AuthHandler struct {
	Auth         *service.SessionAuthority
	SecureCookie bool
	Log          *slog.Logger
}

func NewAuthHandler(auth *service.SessionAuthority, secureCookie bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, SecureCookie: secureCookie, Log: log}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.SecureCookie, true)
}

// Login checks credentials and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Missing credentials")
		return
	}

	cred, err := h.Auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	token, err := h.Auth.IssueToken(cred)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	h.setSessionCookie(c, token, int(h.Auth.TTL().Seconds()))
	h.Log.InfoContext(c.Request.Context(), "admin signed in", "admin", cred.Subject)
	util.Success(c, nil)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	util.Success(c, nil)
}

// Me returns the verified credential.
func (h *AuthHandler) Me(c *gin.Context) {
	cred, ok := middleware.CurrentCredential(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
		return
	}
	util.Success(c, util.Response{"user": cred})
}
