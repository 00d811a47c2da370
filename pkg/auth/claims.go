package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Principal is the authenticated caller every domain operation acts on behalf of.
// ProfileID is the client or vendor profile id for those roles and nil for admins.
type Principal struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	ProfileID uuid.UUID
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

// IsVendor reports whether p acts as vendor profile id.
func (p Principal) IsVendor(vendorID uuid.UUID) bool {
	return p.Role == enums.UserRoleVendor && p.ProfileID != uuid.Nil && p.ProfileID == vendorID
}

// IsClient reports whether p acts as client profile id.
func (p Principal) IsClient(clientID uuid.UUID) bool {
	return p.Role == enums.UserRoleClient && p.ProfileID != uuid.Nil && p.ProfileID == clientID
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	ProfileID *uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT presented by callers.
type AccessTokenClaims struct {
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	ProfileID *uuid.UUID     `json:"profile_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the domain principal.
func (c AccessTokenClaims) Principal() Principal {
	p := Principal{UserID: c.UserID, Role: c.Role}
	if c.ProfileID != nil {
		p.ProfileID = *c.ProfileID
	}
	return p
}
