package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.HomeHandler(), s.HTMLMiddleWare(s.LoadSession)...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.HTMLMiddleWare(s.LoadSession, s.RequireSession)...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare(NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+s.callbackPath, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare(NoStoreMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutPageHandler(), s.HTMLMiddleWare(NoStoreMiddleware, s.LoadSession)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(NoStoreMiddleware)...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RequestIDMiddleware))
}
