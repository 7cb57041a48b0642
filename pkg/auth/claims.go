package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CollectorIdentifier string
	Role                enums.ActorRole
	JTI                 string
}

// AccessTokenClaims represents the typed JWT issued to collectors and operators.
type AccessTokenClaims struct {
	CollectorIdentifier string          `json:"collector_identifier"`
	Role                enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
