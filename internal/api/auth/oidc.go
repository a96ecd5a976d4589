package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"replyify-site/internal/domain/users"
)

// Provider is the hosted identity provider.
type Provider interface {
	// AuthCodeURL is the provider sign-in URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the verified user.
	Exchange(ctx context.Context, code string) (users.User, error)
	// LogoutURL is the provider's end-session URL, or "" when there is none.
	LogoutURL() string
}

type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	LogoutURL    string
}

// OIDCProvider implements Provider against any OpenID Connect issuer.
type OIDCProvider struct {
	oauth     oauth2.Config
	verifier  *oidc.IDTokenVerifier
	logoutURL string
}

type idClaims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Picture   string `json:"picture"`
}

// NewOIDCProvider runs issuer discovery, so it needs the network.
func NewOIDCProvider(ctx context.Context, cfg ProviderConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", cfg.IssuerURL, err)
	}

	logoutURL := cfg.LogoutURL
	if logoutURL == "" {
		var meta struct {
			EndSessionEndpoint string `json:"end_session_endpoint"`
		}
		if err := provider.Claims(&meta); err == nil {
			logoutURL = meta.EndSessionEndpoint
		}
	}

	return &OIDCProvider{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier:  provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logoutURL: logoutURL,
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *OIDCProvider) LogoutURL() string {
	return p.logoutURL
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (users.User, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return users.User{}, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return users.User{}, errors.New("no id_token field in oauth2 token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return users.User{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return users.User{}, fmt.Errorf("decode id_token claims: %w", err)
	}
	return claims.user()
}

func (c idClaims) user() (users.User, error) {
	if c.Sub == "" || c.Email == "" {
		return users.User{}, errors.New("token missing required claims")
	}
	return users.User{
		ID:                c.Sub,
		Email:             c.Email,
		FirstName:         firstNonEmpty(c.GivenName, c.Name),
		ProfilePictureURL: c.Picture,
	}, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
