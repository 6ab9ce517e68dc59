package api

// TokenRequest asks the server for an access token.
type TokenRequest struct {
	Password string `json:"password"` // operator password
}

// TokenResponse carries the issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // token lifetime in seconds
}

// ErrorResponse is the error envelope used by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`             // error description
	Message string `json:"message,omitempty"` // optional detail
}

// HealthResponse is returned by the health endpoint; it doubles as the
// connectivity probe target for offline clients.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
