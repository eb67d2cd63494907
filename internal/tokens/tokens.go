// Package tokens mints access tokens for the external media-transport room.
package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a minted token stays valid
const DefaultTTL = 6 * time.Hour

// VideoGrant carries the room permissions embedded in an access token
type VideoGrant struct {
	RoomJoin bool   `json:"roomJoin"`
	Room     string `json:"room"`
}

// Claims is the access-token payload understood by the media transport
type Claims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name"`
	Video VideoGrant `json:"video"`
}

// Minter creates signed room access tokens
type Minter struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewMinter creates a minter for the given transport API credentials
func NewMinter(apiKey, apiSecret string, ttl time.Duration) (*Minter, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("transport API key and secret must be set")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Minter{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}, nil
}

// Mint creates a signed token granting identity access to the given room
func (m *Minter) Mint(identity, name, room string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name: name,
		Video: VideoGrant{
			RoomJoin: true,
			Room:     room,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.apiSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
