package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warelink/stocksync_backend/config"
	"github.com/warelink/stocksync_backend/models"
	"github.com/warelink/stocksync_backend/utils"
	"gorm.io/gorm"
)

// JwtAuthMiddleware guards the operator API. A valid Bearer token puts the
// caller's identity on the request context for downstream handlers.
func JwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := utils.JwtValidate(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetUserIdInContext(c.Request.Context(), claims.ID)
		ctx = utils.SetUsernameInContext(ctx, claims.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TokenAuthMiddleware guards the provider endpoints, which partner sites
// call with `Authorization: token <key>:<secret>`. Failures mirror the
// provider response envelope so remote clients can classify them.
func TokenAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, ok := authenticateTokenHeader(c, db)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":     false,
				"error":       "invalid or missing API credentials",
				"status_code": http.StatusUnauthorized,
			})
			return
		}

		ctx := utils.SetAPIKeyInContext(c.Request.Context(), cred.APIKey)
		ctx = utils.SetCredentialLabelInContext(ctx, cred.Label)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// credentialCacheTTL bounds how long a provider credential is served from
// Redis before the database is consulted again.
const credentialCacheTTL = 5 * time.Minute

type cachedCredential struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Label     string `json:"label"`
	Enabled   bool   `json:"enabled"`
}

func authenticateTokenHeader(c *gin.Context, db *gorm.DB) (*models.ApiCredential, bool) {
	auth := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "token ") {
		return nil, false
	}
	key, secret, found := strings.Cut(strings.TrimPrefix(auth, "token "), ":")
	if !found || key == "" {
		return nil, false
	}

	cacheKey := "stocksync:cred:" + key
	var cached cachedCredential
	if hit, err := config.GetRedisObject(cacheKey, &cached); err == nil && hit {
		cred := &models.ApiCredential{
			APIKey:    cached.APIKey,
			APISecret: cached.APISecret,
			Label:     cached.Label,
			Enabled:   cached.Enabled,
		}
		if cred.Matches(secret) {
			return cred, true
		}
		// Stale cache after a rotation; drop it and re-check the database.
		_ = config.RemoveRedisKey(cacheKey)
	}

	cred, err := models.FindApiCredentialByKey(db, c.Request.Context(), key)
	if err != nil {
		return nil, false
	}
	if !cred.Matches(secret) {
		return nil, false
	}
	_ = config.SetRedisObject(cacheKey, cachedCredential{
		APIKey:    cred.APIKey,
		APISecret: cred.APISecret,
		Label:     cred.Label,
		Enabled:   cred.Enabled,
	}, credentialCacheTTL)
	return cred, true
}
