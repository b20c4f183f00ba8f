package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Auth form submissions
	RouteAuthSignup    = "/auth/signup"
	RouteAuthLogin     = "/auth/login"
	RouteAuthVerifyOTP = "/auth/verify-otp"
	RouteAuthResendOTP = "/auth/resend-otp"
	RouteAuthCancel    = "/auth/cancel"
	RouteAuthLogout    = "/auth/logout"

	// JSON API consumed by page scripts
	RouteAPINav            = "/api/nav"
	RouteAPITicketsSummary = "/api/tickets/summary"
	RouteAPIWorkflows      = "/api/workflows"
	RouteAPIAISuggest      = "/api/ai/suggest"

	// Pages: everything else is a page identity resolved by the guard
	RoutePage = "/{page...}"
)

// Cookie names
const (
	sessionCookieName  = "portal_session"
	rememberCookieName = "portal_remember"
)
