package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"finance-portal/internal/models"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "session"
	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/login"

	credentialKey = "currentCredential"
	adminKey      = "currentAdmin"
)

// DefaultPublicPaths never require a session. Entries ending in "/" or "*"
// match as prefixes, everything else must match exactly.
var DefaultPublicPaths = []string{
	"/_next/",
	"/favicon*",
	"/static/",
	LoginPath,
	"/api/auth/login",
}

// IsPublic reports whether path is on the allow-list.
func IsPublic(path string, public []string) bool {
	for _, p := range public {
		switch {
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
		case strings.HasSuffix(p, "/"):
			if strings.HasPrefix(path, p) {
				return true
			}
		case path == p:
			return true
		}
	}
	return false
}

// LoginRedirect builds the login URL carrying the original target.
func LoginRedirect(target string) string {
	return LoginPath + "?next=" + url.QueryEscape(target)
}

// SessionGate lets allow-listed paths through and requires a valid session
// cookie for everything else. Failures redirect to the login page.
func SessionGate(auth *service.SessionAuthority, public []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsPublic(c.Request.URL.Path, public) {
			c.Next()
			return
		}

		token, _ := c.Cookie(SessionCookie)
		cred, err := auth.VerifyToken(token)
		if err != nil {
			c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}

		c.Set(credentialKey, cred)
		c.Next()
	}
}

// CurrentCredential returns the credential set by SessionGate.
func CurrentCredential(c *gin.Context) (service.Credential, bool) {
	v, ok := c.Get(credentialKey)
	if !ok {
		return service.Credential{}, false
	}
	cred, ok := v.(service.Credential)
	return cred, ok
}

// LoadAdmin loads the admin row behind the session for routes that change
// the account itself. Inactive or missing admins get 401.
func LoadAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := CurrentCredential(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
			c.Abort()
			return
		}
		id, err := cred.AdminID()
		if err != nil {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
			c.Abort()
			return
		}

		var admin models.Admin
		if err := db.WithContext(c.Request.Context()).First(&admin, id).Error; err != nil || !admin.IsActive {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
			c.Abort()
			return
		}

		c.Set(adminKey, &admin)
		c.Next()
	}
}

// CurrentAdmin returns the admin set by LoadAdmin.
func CurrentAdmin(c *gin.Context) (*models.Admin, bool) {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.Admin)
	return admin, ok && admin != nil
}
