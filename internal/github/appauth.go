package github

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forkhold/forkhold/pkg/errors"
)

// appJWTLifetime keeps the app JWT comfortably inside GitHub's ten minute
// maximum.
const appJWTLifetime = 9 * time.Minute

// AppJWT mints the short-lived RS256 JWT a GitHub App authenticates with.
// The issued-at claim is backdated a minute to absorb clock skew.
func AppJWT(appID, privateKeyPEM string) (string, error) {
	if appID == "" || privateKeyPEM == "" {
		return "", &errors.AuthenticationError{
			Method:  "app_jwt",
			Message: "APP_ID or APP_PRIVATE_KEY not set",
		}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", &errors.AuthenticationError{
			Method:  "app_jwt",
			Message: "cannot parse private key",
			Err:     err,
		}
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
		Issuer:    appID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &errors.AuthenticationError{
			Method:  "app_jwt",
			Message: "cannot sign JWT",
			Err:     err,
		}
	}
	return signed, nil
}

// Installation is one place a GitHub App is installed.
type Installation struct {
	ID      int64 `json:"id"`
	Account struct {
		Login string `json:"login"`
	} `json:"account"`
}

// ListInstallations returns the app's installations, authenticated with an
// app JWT rather than the client's own token.
func (c *Client) ListInstallations(ctx context.Context, appJWT string) ([]Installation, error) {
	jwtClient := &Client{http: c.http, baseURL: c.baseURL, token: appJWT}
	var installations []Installation
	if err := jwtClient.do(ctx, http.MethodGet, "/app/installations", nil, &installations); err != nil {
		return nil, err
	}
	return installations, nil
}

// InstallationFor picks the installation belonging to org, matched
// case-insensitively.
func InstallationFor(installations []Installation, org string) (Installation, bool) {
	for _, inst := range installations {
		if strings.EqualFold(inst.Account.Login, org) {
			return inst, true
		}
	}
	return Installation{}, false
}

// InstallationToken exchanges an app JWT for a short-lived installation
// access token.
func (c *Client) InstallationToken(ctx context.Context, appJWT string, installationID int64) (string, error) {
	jwtClient := &Client{http: c.http, baseURL: c.baseURL, token: appJWT}
	var out struct {
		Token string `json:"token"`
	}
	path := "/app/installations/" + strconv.FormatInt(installationID, 10) + "/access_tokens"
	if err := jwtClient.do(ctx, http.MethodPost, path, map[string]string{}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &errors.AuthenticationError{
			Method:  "installation",
			Message: "empty token in response",
		}
	}
	return out.Token, nil
}
