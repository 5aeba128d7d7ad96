package handler

import (
	"log/slog"
	"net/http"

	"finance-portal/internal/middleware"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// ProfileHandler lets the signed-in admin manage their own account.
// Routes sit behind middleware.LoadAdmin.
type ProfileHandler struct {
	Profiles *service.ProfileService
	Auth     *AuthHandler
	Log      *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, auth *AuthHandler, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Auth: auth, Log: log}
}

type updateProfileReq struct {
	Name string `json:"name"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfile POST /api/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
		return
	}
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request body.")
		return
	}
	if err := h.Profiles.UpdateName(c.Request.Context(), admin, req.Name); err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"user": gin.H{
		"id":    admin.ID,
		"email": admin.Email,
		"name":  admin.Name,
	}})
}

// ChangePassword POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
		return
	}
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request body.")
		return
	}
	if err := h.Profiles.ChangePassword(c.Request.Context(), admin, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"message": "Password changed. Sign in again with the new password."})
}

// Deactivate POST /api/profile/deactivate
func (h *ProfileHandler) Deactivate(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
		return
	}
	if err := h.Profiles.Deactivate(c.Request.Context(), admin); err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.Auth.setSessionCookie(c, "", -1)
	util.Success(c, nil)
}
