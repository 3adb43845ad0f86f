package security

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewTokenProvider builds the token manager for the configured flow.
// Prompts for interactive and device code logins are written to out.
func NewTokenProvider(cfg config.AuthConfig, out io.Writer) (*TokenManager, error) {
	acquirer, err := NewAcquirer(cfg, out)
	if err != nil {
		return nil, err
	}
	return NewTokenManager(acquirer, cfg.RefreshBuffer), nil
}

// NewAcquirer returns the acquirer for cfg.Flow
func NewAcquirer(cfg config.AuthConfig, out io.Writer) (Acquirer, error) {
	switch cfg.Flow {
	case config.FlowStatic:
		return &StaticAcquirer{token: cfg.AccessToken}, nil
	case config.FlowClientCredentials:
		return &ClientCredentialsAcquirer{config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
			Scopes:       cfg.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}}, nil
	case config.FlowDeviceCode:
		return &DeviceCodeAcquirer{config: publicClientConfig(cfg), out: out}, nil
	case config.FlowInteractive:
		return &InteractiveAcquirer{
			config:       publicClientConfig(cfg),
			loginTimeout: cfg.LoginTimeout,
			openBrowser:  printLoginURL(out),
		}, nil
	}
	return nil, fmt.Errorf("unsupported auth flow: %s", cfg.Flow)
}

func publicClientConfig(cfg config.AuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:       cfg.AuthURL(),
			TokenURL:      cfg.TokenURL(),
			DeviceAuthURL: cfg.DeviceAuthURL(),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// refreshWith redeems a refresh token against the token endpoint
func refreshWith(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
}

// StaticAcquirer serves a pre-issued bearer token
type StaticAcquirer struct {
	token string
}

func (a *StaticAcquirer) Flow() string { return config.FlowStatic }

func (a *StaticAcquirer) Acquire(ctx context.Context) (*oauth2.Token, error) {
	if a.token == "" {
		return nil, fmt.Errorf("no access token configured")
	}
	return &oauth2.Token{AccessToken: a.token, TokenType: "Bearer"}, nil
}

func (a *StaticAcquirer) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return a.Acquire(ctx)
}

// ClientCredentialsAcquirer authenticates as the application itself
type ClientCredentialsAcquirer struct {
	config *clientcredentials.Config
}

func (a *ClientCredentialsAcquirer) Flow() string { return config.FlowClientCredentials }

func (a *ClientCredentialsAcquirer) Acquire(ctx context.Context) (*oauth2.Token, error) {
	return a.config.Token(ctx)
}

func (a *ClientCredentialsAcquirer) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return a.config.Token(ctx)
}

// DeviceCodeAcquirer runs the device authorization grant
type DeviceCodeAcquirer struct {
	config *oauth2.Config
	out    io.Writer
}

func (a *DeviceCodeAcquirer) Flow() string { return config.FlowDeviceCode }

func (a *DeviceCodeAcquirer) Acquire(ctx context.Context) (*oauth2.Token, error) {
	auth, err := a.config.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}

	fmt.Fprintf(a.out, "To sign in, open %s and enter the code %s\n", auth.VerificationURI, auth.UserCode)

	token, err := a.config.DeviceAccessToken(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("device code login failed: %w", err)
	}
	return token, nil
}

func (a *DeviceCodeAcquirer) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return refreshWith(ctx, a.config, token)
}

// InteractiveAcquirer runs the authorization code flow with PKCE and a loopback redirect
type InteractiveAcquirer struct {
	config       *oauth2.Config
	loginTimeout time.Duration
	openBrowser  func(authURL string) error
}

func (a *InteractiveAcquirer) Flow() string { return config.FlowInteractive }

func (a *InteractiveAcquirer) Acquire(ctx context.Context) (*oauth2.Token, error) {
	if a.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.loginTimeout)
		defer cancel()
	}

	state := utils.NewLoginState()
	server, err := StartCallbackServer(a.config.RedirectURL, state)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to stop login callback server: %v", err)
		}
	}()

	cfg := *a.config
	cfg.RedirectURL = server.RedirectURL()

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	if err := a.openBrowser(authURL); err != nil {
		return nil, fmt.Errorf("failed to start login: %w", err)
	}

	code, err := server.Wait(ctx)
	if err != nil {
		return nil, err
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return token, nil
}

func (a *InteractiveAcquirer) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	return refreshWith(ctx, a.config, token)
}

func printLoginURL(out io.Writer) func(string) error {
	return func(authURL string) error {
		_, err := fmt.Fprintf(out, "Open the following URL in a browser to sign in:\n%s\n", authURL)
		return err
	}
}
