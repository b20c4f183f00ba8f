// Package server is the portal gateway: it serves the dashboard pages,
// runs every request through the route guard, and drives the signup and
// OTP login forms against the remote auth backend.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miu-servicedesk/portal/authflow"
	"github.com/miu-servicedesk/portal/authflow/authapi"
	"github.com/miu-servicedesk/portal/internal/config"
	"github.com/miu-servicedesk/portal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backends groups the remote REST collaborators. Auth is required; the
// bearer-authenticated clients are optional and only gate the proxy
// endpoints that use them.
type Backends struct {
	Auth     authapi.Client
	Tickets  *authapi.BearerClient
	Workflow *authapi.BearerClient
	AI       *authapi.BearerClient
}

type Server struct {
	env        string // Environment (e.g. "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	sessions   session.Repo
	backends   Backends
	cookies    *cookieCodec
	sessionTTL time.Duration
	resends    *authflow.ResendGuard
	logger     zerolog.Logger
}

func New(cfg config.Config, sessions session.Repo, backends Backends) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}
	if backends.Auth == nil {
		return nil, fmt.Errorf("[Server New] auth backend client is required")
	}

	ttl, err := time.ParseDuration(cfg.GetSessionTTL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] invalid SESSION_TTL: %w", err)
	}

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		sessions:   sessions,
		backends:   backends,
		cookies:    newCookieCodec(cfg.GetSessionSecret(), ttl),
		sessionTTL: ttl,
		resends:    authflow.NewResendGuard(),
		logger:     log.With().Str("component", "server").Logger(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
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
			s.logger.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.logger.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}
