package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

func testHTTPVerifier(googleURL, facebookURL string) *HTTPVerifier {
	v := NewHTTPVerifier(&config.AuthConfig{
		GoogleAppID:       "donorhub-client",
		FacebookAppID:     "fb-app",
		FacebookAppSecret: "fb-secret",
	})
	if googleURL != "" {
		v.googleBaseURL = googleURL
	}
	if facebookURL != "" {
		v.facebookBaseURL = facebookURL
	}
	return v
}

func TestVerifyGoogleToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"aud":   "donorhub-client",
			"sub":   "g-42",
			"email": "donor@example.com",
			"name":  "Jane Donor",
		})
	}))
	defer srv.Close()

	v := testHTTPVerifier(srv.URL, "")

	identity, err := v.Verify(context.Background(), models.ProviderGoogle, "good-token")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if identity.FederatedID != "g-42" {
		t.Errorf("Expected subject g-42, got %q", identity.FederatedID)
	}
	if identity.Email != "donor@example.com" {
		t.Errorf("Expected provider email, got %q", identity.Email)
	}

	if _, err := v.Verify(context.Background(), models.ProviderGoogle, "expired-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for a rejected token, got %v", err)
	}
}

func TestVerifyGoogleTokenForAnotherApplication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"aud": "someone-elses-client",
			"sub": "g-42",
		})
	}))
	defer srv.Close()

	v := testHTTPVerifier(srv.URL, "")

	if _, err := v.Verify(context.Background(), models.ProviderGoogle, "valid-but-foreign"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for a foreign audience, got %v", err)
	}
}

func TestVerifyFacebookToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug_token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "fb-app|fb-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		valid := r.URL.Query().Get("input_token") == "good-token"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"app_id":   "fb-app",
				"is_valid": valid,
				"user_id":  "fb-7",
			},
		})
	})
	mux.HandleFunc("/fb-7", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":    "fb-7",
			"name":  "Jane Donor",
			"email": "donor@example.com",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v := testHTTPVerifier("", srv.URL)

	identity, err := v.Verify(context.Background(), models.ProviderFacebook, "good-token")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if identity.FederatedID != "fb-7" {
		t.Errorf("Expected subject fb-7, got %q", identity.FederatedID)
	}
	if identity.Email != "donor@example.com" {
		t.Errorf("Expected provider email, got %q", identity.Email)
	}

	if _, err := v.Verify(context.Background(), models.ProviderFacebook, "stolen-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for an invalid token, got %v", err)
	}
}

func TestVerifyUnknownProvider(t *testing.T) {
	v := testHTTPVerifier("", "")

	if _, err := v.Verify(context.Background(), "myspace", "token"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestVerifyUnconfiguredProvider(t *testing.T) {
	v := NewHTTPVerifier(&config.AuthConfig{})

	if _, err := v.Verify(context.Background(), models.ProviderGoogle, "token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized when google sign-in is unconfigured, got %v", err)
	}
	if _, err := v.Verify(context.Background(), models.ProviderFacebook, "token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized when facebook sign-in is unconfigured, got %v", err)
	}
}
