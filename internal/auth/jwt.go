package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the shape of token this service expects. RoomID is checked
// against the room the client is trying to Connect to, so a token minted
// for one room can't be replayed against another.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"uid"`
	RoomID      string `json:"room_id"`
	Audio       bool   `json:"audio"`
	Video       bool   `json:"video"`
	ScreenShare bool   `json:"screen_share"`
}

// JWTAuth is a concrete Fn backed by HMAC-signed JWTs. It is one legitimate
// implementation of the opaque auth boundary, not part of the boundary
// itself — callers depend on Fn, never on JWTAuth directly.
type JWTAuth struct {
	signingKey []byte
}

// NewJWTAuth constructs a JWTAuth. The signing key must be at least 32
// bytes, matching the HS256 key-strength floor used elsewhere in this
// codebase's lineage.
func NewJWTAuth(signingKey string) (*JWTAuth, error) {
	if len(signingKey) < 32 {
		return nil, errors.New("signing key must be at least 32 characters")
	}
	return &JWTAuth{signingKey: []byte(signingKey)}, nil
}

// Authenticate implements Fn.
func (a *JWTAuth) Authenticate(ctx context.Context, roomID, token string) (UserInformation, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return UserInformation{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return UserInformation{}, errors.New("invalid token claims")
	}

	if claims.RoomID != "" && claims.RoomID != roomID {
		return UserInformation{}, errors.New("token is not valid for this room")
	}

	return UserInformation{
		ID: claims.UserID,
		Capabilities: UserCapabilities{
			Audio:       claims.Audio,
			Video:       claims.Video,
			ScreenShare: claims.ScreenShare,
		},
	}, nil
}
