// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Staff roles carried in access tokens.
const (
	RoleSuperAdmin = "super_admin"
	RoleDealer     = "dealer"
	RoleManager    = "manager"
)

// Identity represents the authenticated staff member.
// Handlers read it instead of poking at gin context keys.
type Identity interface {
	UserID() uuid.UUID
	Role() string
	// TenantID is nil for super admins.
	TenantID() *uuid.UUID
	IsSuperAdmin() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	role          string
	tenantID      *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID    { return i.userID }
func (i *identity) Role() string         { return i.role }
func (i *identity) TenantID() *uuid.UUID { return i.tenantID }
func (i *identity) IsSuperAdmin() bool   { return i.role == RoleSuperAdmin }
func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	role := c.GetString(ContextRoleKey)
	var tenantID *uuid.UUID
	if raw, ok := c.Get(ContextTenantIDKey); ok {
		if tid, ok := raw.(uuid.UUID); ok {
			tenantID = &tid
		}
	}

	return &identity{
		userID:        uid,
		role:          role,
		tenantID:      tenantID,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
