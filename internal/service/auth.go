package service

import (
	"github.com/clerk/clerk-sdk-go/v2"

	"github.com/deppfellow/careportal/internal/server"
)

// AuthService configures the Clerk SDK key used by the auth middleware
// and the background user lookups.
type AuthService struct {
	server *server.Server
}

func NewAuthService(s *server.Server) *AuthService {
	clerk.SetKey(s.Config.Auth.SecretKey)
	return &AuthService{
		server: s,
	}
}
