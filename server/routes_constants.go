package server

// Route path constants
const (
	RouteHome    = "/"
	RouteProfile = "/profile"
	RouteHealth  = "/healthz"

	// Login flow
	RouteLogin    = "/auth/okta"
	RouteCallback = "/auth/okta/callback"
	RouteLogout   = "/logout"
)

// Query parameters
const (
	paramReturnTo = "return_to"
	paramError    = "error"

	errorLoginFailed = "login_failed"
)
