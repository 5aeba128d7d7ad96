package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

const genericServerError = "Internal server error"

// respondError maps service errors onto the JSON envelope. Store detail
// stays in the log.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, ve.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidSession):
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
	case errors.Is(err, service.ErrNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "Not found")
	default:
		log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, genericServerError)
	}
}

// queryInt parses an optional integer query parameter; absent or malformed
// values yield def.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// requireYear reads ?year= and writes a 400 when it is missing or invalid.
func requireYear(c *gin.Context) (int, bool) {
	year := queryInt(c, "year", 0)
	if util.ValidateYear(year) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Missing year")
		return 0, false
	}
	return year, true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
