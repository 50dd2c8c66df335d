// Package gmail adapts the Gmail API to the MailRepository interface.
// Authentication reuses the credentials.json / token.json file pair, so
// a token minted by any standard Google OAuth flow works unchanged.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// defaultScopes covers read plus label changes for approved rules.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
}

// storedToken is the token.json layout shared with google-auth.
type storedToken struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
}

// newService builds an authenticated Gmail API client.
func newService(ctx context.Context, credentialsPath, tokenPath string) (*gm.Service, error) {
	client, err := oauthClient(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, err
	}
	return gm.NewService(ctx, option.WithHTTPClient(client))
}

func oauthClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credentialsPath, err)
	}
	config, err := google.ConfigFromJSON(creds, defaultScopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token from %s: %w", tokenPath, err)
	}

	return oauth2.NewClient(ctx, config.TokenSource(ctx, token)), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  stored.Token,
		RefreshToken: stored.RefreshToken,
		TokenType:    "Bearer",
	}
	if stored.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, stored.Expiry); err == nil {
			token.Expiry = expiry
		}
	}
	return token, nil
}
