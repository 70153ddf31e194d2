package auth

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/users"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxUserID      = "user_id"
)

// RequireUser validates the Firebase ID token, upserts the user row, and puts
// the DB user id in context. Handlers read the caller id with UserID and pass
// it to services explicitly.
func RequireUser(authClient *auth.Client, userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := authClient.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		up := users.UpsertUser{FirebaseUID: decoded.UID}
		if email, ok := decoded.Claims["email"].(string); ok {
			up.Email = email
		}
		if name, ok := decoded.Claims["name"].(string); ok {
			up.DisplayName = name
		}

		uid, err := userRepo.EnsureUser(c.Request.Context(), up)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxFirebaseUID, decoded.UID)
		c.Set(CtxUserID, uid)
		c.Next()
	}
}

// OptionalUser resolves the caller when a valid token is present but lets
// anonymous requests through untouched. Public marketplace reads use it so
// filters like owner=me still work for signed-in users.
func OptionalUser(authClient *auth.Client, userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		decoded, err := authClient.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		up := users.UpsertUser{FirebaseUID: decoded.UID}
		if email, ok := decoded.Claims["email"].(string); ok {
			up.Email = email
		}
		if name, ok := decoded.Claims["name"].(string); ok {
			up.DisplayName = name
		}

		if uid, err := userRepo.EnsureUser(c.Request.Context(), up); err == nil {
			c.Set(CtxFirebaseUID, decoded.UID)
			c.Set(CtxUserID, uid)
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's DB user id, set by RequireUser.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
