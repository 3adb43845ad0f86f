package security

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"dataset-publisher/internal/controller"
	"dataset-publisher/internal/middleware"

	"github.com/gin-gonic/gin"
)

// CallbackServer is the loopback HTTP server receiving the login redirect
type CallbackServer struct {
	redirectURL string
	server      *http.Server
	results     chan controller.CallbackResult
}

// StartCallbackServer listens on the host and port of redirectURL and serves its path.
// Port 0 picks a free port; RedirectURL reports the address actually bound.
func StartCallbackServer(redirectURL, state string) (*CallbackServer, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("redirect URL must be a loopback http URL, got %q", redirectURL)
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}

	listener, err := net.Listen("tcp", parsed.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for login callback: %w", err)
	}

	bound := *parsed
	bound.Host = net.JoinHostPort(parsed.Hostname(), strconv.Itoa(listener.Addr().(*net.TCPAddr).Port))

	results := make(chan controller.CallbackResult, 1)
	callbackController := controller.NewAuthCallbackController(state, results)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.PrometheusMiddleware())
	router.GET(path, callbackController.HandleCallback)

	cs := &CallbackServer{
		redirectURL: bound.String(),
		server:      &http.Server{Handler: router},
		results:     results,
	}

	go func() {
		if err := cs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Login callback server stopped: %v", err)
		}
	}()

	return cs, nil
}

// RedirectURL returns the redirect URL with the bound port
func (cs *CallbackServer) RedirectURL() string {
	return cs.redirectURL
}

// Wait blocks until the identity provider redirects back or ctx is done
func (cs *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for login callback: %w", ctx.Err())
	case result := <-cs.results:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Code, nil
	}
}

// Shutdown stops the server
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}
