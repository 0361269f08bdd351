package push

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenURL is Google's OAuth2 token endpoint, overridable for
	// tests and non-production projects.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenLifetime  = time.Hour
)

// ErrMissingCredentials aborts a dispatcher run before any reminder is
// touched. There is no partial token.
var ErrMissingCredentials = errors.New("push credentials are not configured")

type Credentials struct {
	ClientEmail   string
	PrivateKeyPEM string
	ProjectID     string
	TokenURL      string
}

// TokenSource signs a service-account JWT and exchanges it for an OAuth
// bearer token at the configured endpoint.
type TokenSource struct {
	creds  Credentials
	key    *rsa.PrivateKey
	client *http.Client
	now    func() time.Time
}

func NewTokenSource(creds Credentials, client *http.Client) (*TokenSource, error) {
	if creds.ClientEmail == "" || creds.PrivateKeyPEM == "" || creds.ProjectID == "" {
		return nil, ErrMissingCredentials
	}
	if creds.TokenURL == "" {
		creds.TokenURL = DefaultTokenURL
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenSource{creds: creds, key: key, client: client, now: time.Now}, nil
}

// Token builds the assertion with iss = sub = client email, aud = token
// URL and a one hour expiry, then posts it as a JWT-bearer grant.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.creds.ClientEmail,
		"sub":   ts.creds.ClientEmail,
		"aud":   ts.creds.TokenURL,
		"scope": messagingScope,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("token response carried no access_token")
	}
	return body.AccessToken, nil
}

// ProjectID exposes the messaging project for sender construction.
func (ts *TokenSource) ProjectID() string { return ts.creds.ProjectID }
