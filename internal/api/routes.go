package api

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)

	s.router.HandleFunc("/diff", s.handleDiff)               // POST {base, head, docs?}
	s.router.HandleFunc("/examples/run", s.handleRunExample) // POST {packageName, packageVersion?, code}
	s.router.HandleFunc("/validate", s.handleValidate)       // POST {kind, document}
	s.router.HandleFunc("/", s.handleNotFound)
}
