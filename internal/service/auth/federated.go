package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// ProviderIdentity is the subject a provider vouches for after token
// verification.
type ProviderIdentity struct {
	FederatedID string
	Email       string
	Name        string
}

// ProviderVerifier validates a provider-issued token and resolves the
// identity it was issued for. The federated subject ID is always taken from
// the verified token, never from the request body.
type ProviderVerifier interface {
	Verify(ctx context.Context, provider, token string) (*ProviderIdentity, error)
}

const (
	googleTokenInfoURL     = "https://oauth2.googleapis.com/tokeninfo"
	facebookGraphURL       = "https://graph.facebook.com"
	providerRequestTimeout = 5 * time.Second
)

// HTTPVerifier verifies provider tokens against the providers' public
// endpoints: Google's tokeninfo and Facebook's debug_token. The base URLs are
// fields so tests can point the verifier at a local server.
type HTTPVerifier struct {
	googleAppID       string
	facebookAppID     string
	facebookAppSecret string
	googleBaseURL     string
	facebookBaseURL   string
	client            *http.Client
}

// NewHTTPVerifier creates a verifier for the configured provider apps.
func NewHTTPVerifier(cfg *config.AuthConfig) *HTTPVerifier {
	return &HTTPVerifier{
		googleAppID:       cfg.GoogleAppID,
		facebookAppID:     cfg.FacebookAppID,
		facebookAppSecret: cfg.FacebookAppSecret,
		googleBaseURL:     googleTokenInfoURL,
		facebookBaseURL:   facebookGraphURL,
		client:            &http.Client{Timeout: providerRequestTimeout},
	}
}

// Verify dispatches to the provider-specific check.
func (v *HTTPVerifier) Verify(ctx context.Context, provider, token string) (*ProviderIdentity, error) {
	switch provider {
	case models.ProviderGoogle:
		return v.verifyGoogle(ctx, token)
	case models.ProviderFacebook:
		return v.verifyFacebook(ctx, token)
	}
	return nil, fmt.Errorf("unknown identity provider %q: %w", provider, domain.ErrInvalidInput)
}

// verifyGoogle validates a Google ID token through the tokeninfo endpoint.
// The endpoint checks the signature and expiry; the audience must match our
// configured app ID so tokens minted for other applications are refused.
func (v *HTTPVerifier) verifyGoogle(ctx context.Context, token string) (*ProviderIdentity, error) {
	if v.googleAppID == "" {
		return nil, fmt.Errorf("google sign-in is not configured: %w", domain.ErrUnauthorized)
	}

	endpoint := fmt.Sprintf("%s?id_token=%s", v.googleBaseURL, url.QueryEscape(token))
	var info struct {
		Aud   string `json:"aud"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := v.getJSON(ctx, endpoint, &info); err != nil {
		return nil, fmt.Errorf("google token rejected: %w", domain.ErrUnauthorized)
	}
	if info.Aud != v.googleAppID || info.Sub == "" {
		return nil, fmt.Errorf("google token not issued for this application: %w", domain.ErrUnauthorized)
	}

	return &ProviderIdentity{FederatedID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

// verifyFacebook validates a Facebook access token through debug_token using
// the app access token, then fetches the profile for email and name.
func (v *HTTPVerifier) verifyFacebook(ctx context.Context, token string) (*ProviderIdentity, error) {
	if v.facebookAppID == "" || v.facebookAppSecret == "" {
		return nil, fmt.Errorf("facebook sign-in is not configured: %w", domain.ErrUnauthorized)
	}

	appToken := v.facebookAppID + "|" + v.facebookAppSecret
	endpoint := fmt.Sprintf("%s/debug_token?input_token=%s&access_token=%s",
		v.facebookBaseURL, url.QueryEscape(token), url.QueryEscape(appToken))
	var debug struct {
		Data struct {
			AppID   string `json:"app_id"`
			IsValid bool   `json:"is_valid"`
			UserID  string `json:"user_id"`
		} `json:"data"`
	}
	if err := v.getJSON(ctx, endpoint, &debug); err != nil {
		return nil, fmt.Errorf("facebook token rejected: %w", domain.ErrUnauthorized)
	}
	if !debug.Data.IsValid || debug.Data.AppID != v.facebookAppID || debug.Data.UserID == "" {
		return nil, fmt.Errorf("facebook token not valid for this application: %w", domain.ErrUnauthorized)
	}

	profileURL := fmt.Sprintf("%s/%s?fields=id,name,email&access_token=%s",
		v.facebookBaseURL, url.PathEscape(debug.Data.UserID), url.QueryEscape(token))
	var profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := v.getJSON(ctx, profileURL, &profile); err != nil {
		// The verified subject is enough to resolve the identity.
		return &ProviderIdentity{FederatedID: debug.Data.UserID}, nil
	}

	return &ProviderIdentity{FederatedID: debug.Data.UserID, Email: profile.Email, Name: profile.Name}, nil
}

func (v *HTTPVerifier) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider endpoint returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
