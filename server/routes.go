package server

import "net/http"

func (s *Server) initRoutes() {
	// Auth form submissions
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAuthSignup, ChainMiddleware(s.SignupSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.FormMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAuthVerifyOTP, ChainMiddleware(s.VerifyOTPHandler(), s.FormMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAuthResendOTP, ChainMiddleware(s.ResendOTPHandler(), s.FormMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAuthCancel, ChainMiddleware(s.CancelHandler(), s.FormMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet+" "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.FormMiddleware()...))

	// JSON API consumed by page scripts
	s.RegisterRouteFunc(http.MethodGet+" "+RouteAPINav, ChainMiddleware(s.NavHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet+" "+RouteAPITicketsSummary, ChainMiddleware(s.TicketsSummaryHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet+" "+RouteAPIWorkflows, ChainMiddleware(s.WorkflowsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost+" "+RouteAPIAISuggest, ChainMiddleware(s.AISuggestHandler(), s.APIMiddleware()...))

	// Everything else resolves to a page identity and goes through the guard
	s.RegisterRouteFunc(http.MethodGet+" "+RoutePage, ChainMiddleware(s.PageHandler(), s.PageMiddleware()...))
}
