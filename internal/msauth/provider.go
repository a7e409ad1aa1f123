// Package msauth resolves Microsoft identity credentials for drive accounts:
// the delegated-flow account linking and the silent token acquisition the
// sync engine runs on.
package msauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/config"
	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/store"
)

// Provider acquires and caches bearer tokens for linked accounts. Token state
// round-trips through the TokenStore around every acquisition.
type Provider struct {
	oauth    *oauth2.Config
	accounts store.AccountStore
	tokens   TokenStore
	jwks     *keyfunc.JWKS
}

func NewProvider(cfg *config.Config, accounts store.AccountStore, tokens TokenStore) (*Provider, error) {
	jwksURL := fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", cfg.MSTenant)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("fetching identity platform JWKS: %v", err)
	}
	log.Println("[MsAuth] Successfully loaded identity platform JWKS.")

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.MSClientID,
			ClientSecret: cfg.MSClientSecret,
			RedirectURL:  cfg.MSRedirectURI,
			Endpoint:     microsoft.AzureADEndpoint(cfg.MSTenant),
			Scopes:       cfg.MSScopes,
		},
		accounts: accounts,
		tokens:   tokens,
		jwks:     jwks,
	}, nil
}

// AuthCodeURL returns the URL a user visits to link their account.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Redeem exchanges an authorization code, verifies the id_token against the
// tenant JWKS, registers the account and stores its token.
func (p *Provider) Redeem(ctx context.Context, code string) (*models.Account, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %v", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("token response carried no id_token")
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(rawIDToken, claims, p.jwks.Keyfunc); err != nil {
		return nil, fmt.Errorf("id_token verification failed: %v", err)
	}

	localID, _ := claims["oid"].(string)
	if localID == "" {
		return nil, fmt.Errorf("id_token carried no oid claim")
	}
	username, _ := claims["preferred_username"].(string)
	name, _ := claims["name"].(string)
	tenantID, _ := claims["tid"].(string)

	account := &models.Account{
		LocalAccountID: localID,
		Username:       username,
		Name:           name,
		TenantID:       tenantID,
	}
	if err := p.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	if err := p.tokens.Save(ctx, localID, serialized); err != nil {
		return nil, err
	}

	log.Printf("[MsAuth] Linked account %s (%s)", localID, username)
	return account, nil
}

func (p *Provider) GetAccount(ctx context.Context, localAccountID string) (*models.Account, error) {
	return p.accounts.FindByLocalID(ctx, localAccountID)
}

func (p *Provider) GetAllAccounts(ctx context.Context) ([]models.Account, error) {
	return p.accounts.FindAll(ctx)
}

// AccessToken silently acquires a bearer token for the account, refreshing
// through the stored refresh token. The cache is loaded before and saved
// after the acquisition so a rotated refresh token is never dropped.
func (p *Provider) AccessToken(ctx context.Context, account *models.Account) (string, error) {
	serialized, err := p.tokens.Load(ctx, account.LocalAccountID)
	if err != nil {
		return "", err
	}
	if serialized == nil {
		return "", fmt.Errorf("%w: no cached token for account %s", apperrors.ErrDataIntegrity, account.LocalAccountID)
	}

	var cached oauth2.Token
	if err := json.Unmarshal(serialized, &cached); err != nil {
		return "", fmt.Errorf("%w: corrupt token cache for account %s", apperrors.ErrDataIntegrity, account.LocalAccountID)
	}

	fresh, err := p.oauth.TokenSource(ctx, &cached).Token()
	if err != nil {
		return "", fmt.Errorf("silent token acquisition failed for account %s: %v", account.LocalAccountID, err)
	}

	if fresh.AccessToken != cached.AccessToken || fresh.RefreshToken != cached.RefreshToken {
		reserialized, err := json.Marshal(fresh)
		if err != nil {
			return "", err
		}
		if err := p.tokens.Save(ctx, account.LocalAccountID, reserialized); err != nil {
			return "", err
		}
	}
	return fresh.AccessToken, nil
}
