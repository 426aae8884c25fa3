package httpclient

import "net/http"

// AuthConfig stamps credentials on outgoing requests. A nil *AuthConfig
// sends none.
type AuthConfig struct {
	// scheme names the method in logs, never the secret.
	scheme string
	stamp  func(*http.Request)
}

// Scheme returns "bearer", "basic", "api-key" or "custom".
func (a *AuthConfig) Scheme() string {
	if a == nil {
		return "none"
	}
	return a.scheme
}

func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{scheme: "bearer", stamp: func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}}
}

func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{scheme: "basic", stamp: func(r *http.Request) {
		r.SetBasicAuth(username, password)
	}}
}

// APIKeyAuthHeader sends key in headerName, X-API-Key when empty.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &AuthConfig{scheme: "api-key", stamp: func(r *http.Request) {
		r.Header.Set(headerName, key)
	}}
}

// CustomAuth signs requests with fn.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{scheme: "custom", stamp: fn}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a != nil && a.stamp != nil {
		a.stamp(req)
	}
}
