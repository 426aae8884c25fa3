// Package auth guards the HTTP API with HS256 bearer tokens.
//
// Authentication is off unless auth.enabled is set. When it is on, every
// /api route requires a token signed with auth.secret:
//
//	svc, err := auth.NewService(cfg)
//	token, err := svc.Issue("editor@camara", time.Hour)
//	claims, err := svc.Parse(token)
//
// Handlers read the verified claims back with ClaimsFrom.
package auth
