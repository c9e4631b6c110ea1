package configuration

import (
	"fmt"
)

// GoogleConfig is the resolved Google OAuth client used for login and token refresh.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (g *GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// GetGoogleConfig returns Google OAuth configuration from JSON config with environment variable fallback
func GetGoogleConfig() *GoogleConfig {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 3000
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/google/callback", scheme, port)
	scopes := C.OAuth.Google.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	return &GoogleConfig{
		ClientID:     getConfigValue(C.OAuth.Google.ClientID, "GOOGLE_CLIENT_ID", ""),
		ClientSecret: getConfigValue(C.OAuth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(C.OAuth.Google.RedirectURI, "GOOGLE_REDIRECT_URL", defaultRedirect),
		Scopes:       scopes,
	}
}
