// Package server exposes the HTTP surface of the authorization service:
// the authorize and token endpoints plus a health probe.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/pollverse/connect/authcode"
	"github.com/pollverse/connect/authz"
	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/internal/config"
	"github.com/pollverse/connect/sessions"
	"github.com/pollverse/connect/token"
)

// SessionCookieName is the cookie the main application sets at login. This
// service only reads it.
const SessionCookieName = "pollverse_session"

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	registry *clients.Registry
	authz    *authz.Service
	tokens   *token.Manager
	sessions sessions.Repo
	pages    pageTemplates

	healthChecks []func(ctx context.Context) error
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithHealthCheck adds a collaborator probe to the /healthz endpoint.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.healthChecks = append(s.healthChecks, check)
	}
}

func New(cfg config.Config, registry *clients.Registry, codes authcode.Repo, tokens token.Repo, sessionRepo sessions.Repo, options ...Option) (*Server, error) {
	authzService, err := authz.NewService(registry, codes)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] authz.NewService")
	}
	tokenManager, err := token.NewManager(registry, codes, tokens)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] token.NewManager")
	}
	pages, err := parsePageTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] parsePageTemplates")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		registry: registry,
		authz:    authzService,
		tokens:   tokenManager,
		sessions: sessionRepo,
		pages:    pages,
	}
	s.env = cfg.Env
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
