package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity claims of an access token
type Claims struct {
	UPN      string `json:"upn,omitempty"`
	Name     string `json:"name,omitempty"`
	TenantID string `json:"tid,omitempty"`
	AppID    string `json:"appid,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims reads the claims of an access token without verifying its signature.
// The token is only presented to the API, never trusted locally.
func ParseClaims(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// Principal returns the best available name of the signed-in identity
func (c *Claims) Principal() string {
	switch {
	case c.UPN != "":
		return c.UPN
	case c.Name != "":
		return c.Name
	case c.AppID != "":
		return c.AppID
	}
	return c.Subject
}

// TimeUntilExpiry returns the duration until the token expires
func (c *Claims) TimeUntilExpiry() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}
