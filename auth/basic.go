package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
)

// BasicCredentials implements preemptive HTTP basic authentication.
type BasicCredentials struct {
	Username string
	Password string
}

// NewBasicCredentials creates basic credentials for a feed.
func NewBasicCredentials(username, password string) *BasicCredentials {
	return &BasicCredentials{Username: username, Password: password}
}

// Authenticate sets the Authorization: Basic header on the request.
func (c *BasicCredentials) Authenticate(req *http.Request) {
	pair := fmt.Sprintf("%s:%s", c.Username, c.Password)
	encoded := base64.StdEncoding.EncodeToString([]byte(pair))
	req.Header.Set("Authorization", "Basic "+encoded)
}

// CacheKey identifies the credential without exposing the password.
func (c *BasicCredentials) CacheKey() string {
	sum := sha256.Sum256([]byte(c.Username + ":" + c.Password))
	return "basic:" + c.Username + ":" + hex.EncodeToString(sum[:8])
}
