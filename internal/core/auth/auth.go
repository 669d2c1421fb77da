// Package auth provides HMAC-based API key authentication for the survey API.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// tenantIDKey is the gin context key for the authenticated tenant ID.
const tenantIDKey = "auth.tenant_id"

// Queries interface defines database operations needed for authentication.
// Implemented by *db.Queries to allow query loading via LoadQueries().
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
	}
}

// Authenticate validates an API key and returns the tenant_id on success.
// Returns a specific error for each failure mode.
func (a *Authenticator) Authenticate(apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	// O(1) lookup of HMAC secret using secret_id from key format
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// Query database by key_hash (unique constraint ensures single result)
	var result struct {
		TenantID   string       `db:"tenant_id"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		APIKeyID   string       `db:"api_key_id"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	err = a.queries.Get("get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Update last_used_at if >1 minute since last update
	// 1-minute throttle reduces write amplification for busy integrations
	if shouldUpdateLastUsed(result.LastUsedAt) {
		_, _ = a.queries.Exec("update-api-key-last-used", time.Now().UTC(), result.APIKeyID)
	}

	return result.TenantID, nil
}

// shouldUpdateLastUsed implements the 1-minute write throttle.
func shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return time.Since(lastUsed.Time) > time.Minute
}

// Middleware returns a gin handler that authenticates requests via the
// X-API-Key header and injects the tenant ID for downstream handlers.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingKey.Error()})
			return
		}

		tenantID, err := a.Authenticate(apiKey)
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			case isDatabaseError(err):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			}
			return
		}

		SetTenant(c, tenantID)
		c.Next()
	}
}

// SetTenant records the authenticated tenant on the request context.
// Exposed so tests can stand in for the middleware.
func SetTenant(c *gin.Context, tenantID string) {
	c.Set(tenantIDKey, tenantID)
}

// TenantID extracts the authenticated tenant ID from the gin context.
// Returns empty string if not set.
func TenantID(c *gin.Context) string {
	if tenantID, ok := c.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

func isDatabaseError(err error) bool {
	for _, known := range []error{ErrInvalidKeyFormat, ErrUnknownKey, ErrInvalidKey, ErrKeyRevoked} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
