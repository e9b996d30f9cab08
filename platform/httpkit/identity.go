// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated user's identity as supplied by the
// upstream platform's token. This interface abstracts identity extraction
// from the web framework, allowing handlers to access user information
// without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's numeric ID.
	UserID() int64
	// Role returns the user's role.
	Role() string
	// Name returns the user's display name.
	Name() string
	// IsAdmin reports whether the role grants administrative access.
	IsAdmin() bool
}

// identity is the concrete implementation of Identity.
type identity struct {
	userID int64
	role   string
	name   string
}

func (i *identity) UserID() int64 {
	return i.userID
}

func (i *identity) Role() string {
	return i.role
}

func (i *identity) Name() string {
	return i.name
}

func (i *identity) IsAdmin() bool {
	switch i.role {
	case "admin", "admin_master", "admin_financeiro":
		return true
	}
	return false
}

// GetIdentity extracts the identity from the gin context. Returns nil when
// the request was not authenticated (e.g., cron-secret requests).
func GetIdentity(c *gin.Context) Identity {
	rawID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return nil
	}

	userID, ok := rawID.(int64)
	if !ok {
		return nil
	}

	role, _ := c.Get(ContextRoleKey)
	name, _ := c.Get(ContextUserNameKey)
	roleName, _ := role.(string)
	displayName, _ := name.(string)

	return &identity{userID: userID, role: roleName, name: displayName}
}

// MustGetIdentity extracts the identity or aborts with 401. Returns nil
// when the request was aborted.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
