// Package graph talks to the Facebook Graph API: the OAuth dialog URL,
// code exchange, profile lookup and paginated collection fetches.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/dmitrijs2005/liveon/internal/server/config"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

const (
	// MaxPages caps how many pages FetchAllPages follows.
	MaxPages = 100
	// PageLimit is the page size requested from the provider.
	PageLimit = 100

	Scope = "public_profile,user_photos"
)

// Client is a Graph API client bound to one app registration.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	graphURL     string
	dialogURL    string

	httpClient *http.Client
	log        logging.Logger
}

func NewClient(cfg *config.Config, log logging.Logger) *Client {
	return &Client{
		clientID:     cfg.FBClientID,
		clientSecret: cfg.FBClientSecret,
		redirectURI:  cfg.FBRedirectURI,
		graphURL:     strings.TrimSuffix(cfg.GraphURL(), "/"),
		dialogURL:    strings.TrimSuffix(cfg.FBDialogBase, "/") + "/" + cfg.FBGraphVersion + "/dialog/oauth",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// Configured reports whether an app client id is set.
func (c *Client) Configured() bool {
	return c.clientID != ""
}

// AuthCodeURL returns the provider login dialog URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("scope", Scope)
	params.Set("state", state)
	params.Set("response_type", "code")

	return c.dialogURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for an access credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("client_secret", c.clientSecret)
	params.Set("code", code)

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := c.getJSON(ctx, c.graphURL+"/oauth/access_token?"+params.Encode(), &result); err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return result.AccessToken, nil
}

// Me fetches the profile behind credential. A credential the provider
// rejects with a 4xx is common.ErrorUnauthorized; network failures and
// provider 5xx are common.ErrProviderUnavailable.
func (c *Client) Me(ctx context.Context, credential string) (*models.UserProfile, error) {
	params := url.Values{}
	params.Set("access_token", credential)
	params.Set("fields", "id,name")

	var profile models.UserProfile
	if err := c.getJSON(ctx, c.graphURL+"/me?"+params.Encode(), &profile); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrProviderUnavailable, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", common.ErrorUnauthorized)
	}

	return &profile, nil
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

type page struct {
	Data   []models.Photo `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// FetchAllPages collects every item of /me/{resourcePath}, following
// paging.next verbatim. A failed page ends the walk and whatever was
// gathered so far is returned; there are no retries.
func (c *Client) FetchAllPages(ctx context.Context, resourcePath, credential string) []models.Photo {
	sep := "?"
	if strings.Contains(resourcePath, "?") {
		sep = "&"
	}
	next := fmt.Sprintf("%s/me/%s%saccess_token=%s&limit=%d",
		c.graphURL, resourcePath, sep, url.QueryEscape(credential), PageLimit)

	items := []models.Photo{}
	for i := 0; i < MaxPages && next != ""; i++ {
		var p page
		if err := c.getJSON(ctx, next, &p); err != nil {
			c.log.Warn(ctx, "graph page fetch stopped", "resource", resourcePath, "page", i, "error", err)
			return items
		}
		items = append(items, p.Data...)
		next = p.Paging.Next
	}

	if next != "" {
		c.log.Warn(ctx, "graph pagination capped", "resource", resourcePath, "max_pages", MaxPages)
	}

	return items
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
