package security

import (
	"context"
	"log"
	"sync"
	"time"

	"dataset-publisher/internal/middleware"
	"dataset-publisher/internal/utils"

	"golang.org/x/oauth2"
)

// TokenProvider supplies bearer tokens for the analytics API
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Acquirer obtains tokens from the identity provider
type Acquirer interface {
	// Flow names the OAuth flow, used in logs and metrics
	Flow() string
	// Acquire performs a full acquisition, possibly prompting the user
	Acquire(ctx context.Context) (*oauth2.Token, error)
	// Refresh renews a token without user interaction
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// TokenManager caches the bearer token for the lifetime of the process and
// refreshes it when it gets within refreshBuffer of expiry.
type TokenManager struct {
	acquirer      Acquirer
	refreshBuffer time.Duration
	now           func() time.Time

	mu     sync.Mutex
	token  *oauth2.Token
	claims *Claims
}

// NewTokenManager creates a new token manager around an acquirer
func NewTokenManager(acquirer Acquirer, refreshBuffer time.Duration) *TokenManager {
	return &TokenManager{
		acquirer:      acquirer,
		refreshBuffer: refreshBuffer,
		now:           time.Now,
	}
}

// Token returns the cached access token, acquiring or refreshing it when needed
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != nil && !tm.needsRotation(tm.token) {
		return tm.token.AccessToken, nil
	}

	var token *oauth2.Token
	if tm.token != nil && tm.token.RefreshToken != "" {
		refreshed, err := tm.acquirer.Refresh(ctx, tm.token)
		if err != nil {
			log.Printf("Silent token refresh failed, acquiring a new token: %v", err)
		} else {
			token = refreshed
		}
	}

	if token == nil {
		acquired, err := tm.acquirer.Acquire(ctx)
		middleware.RecordTokenAcquisition(tm.acquirer.Flow(), err)
		if err != nil {
			return "", utils.NewAuthenticationError(err, tm.acquirer.Flow())
		}
		token = acquired
	}

	if token.AccessToken == "" {
		return "", utils.NewAuthenticationError(nil, "identity provider returned an empty access token")
	}

	tm.store(token)
	return token.AccessToken, nil
}

// Claims returns the identity claims of the cached token, if it is a JWT
func (tm *TokenManager) Claims() *Claims {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return tm.claims
}

// Expiry returns when the cached token expires; zero means unknown
func (tm *TokenManager) Expiry() time.Time {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token == nil {
		return time.Time{}
	}
	return tm.token.Expiry
}

func (tm *TokenManager) store(token *oauth2.Token) {
	// Keep the refresh token across refreshes that do not return a new one
	if token.RefreshToken == "" && tm.token != nil {
		token.RefreshToken = tm.token.RefreshToken
	}

	claims, err := ParseClaims(token.AccessToken)
	if err == nil {
		tm.claims = claims
		if token.Expiry.IsZero() && claims.ExpiresAt != nil {
			token.Expiry = claims.ExpiresAt.Time
		}
	} else {
		tm.claims = nil
	}

	tm.token = token
}

// needsRotation reports whether the token expires within the refresh buffer
func (tm *TokenManager) needsRotation(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return tm.now().Add(tm.refreshBuffer).After(token.Expiry)
}
