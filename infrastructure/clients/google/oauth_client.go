package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downloader/infrastructure/configuration"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("google oauth client is not configured")

// Profile is the subset of Google's userinfo used to upsert a user.
type Profile struct {
	GoogleID string
	Name     string
	Email    string
	Picture  string
}

// IGoogleAuth covers the OAuth2 login flow and offline token refresh.
type IGoogleAuth interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, token *oauth2.Token) (*Profile, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type Client struct {
	oauth2Config *oauth2.Config
	apiOptions   []option.ClientOption
}

func NewClient(cfg *configuration.GoogleConfig) IGoogleAuth {
	return newClient(cfg, googleoauth.Endpoint)
}

func newClient(cfg *configuration.GoogleConfig, endpoint oauth2.Endpoint, apiOptions ...option.ClientOption) *Client {
	c := &Client{apiOptions: apiOptions}
	if cfg != nil && cfg.Configured() {
		c.oauth2Config = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		}
	}
	return c
}

func (c *Client) Configured() bool {
	return c.oauth2Config != nil
}

// AuthURL requests offline access so Google returns a refresh token.
func (c *Client) AuthURL(state string) string {
	if c.oauth2Config == nil {
		return ""
	}
	return c.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if c.oauth2Config == nil {
		return nil, ErrNotConfigured
	}
	tok, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func (c *Client) UserInfo(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if c.oauth2Config == nil {
		return nil, ErrNotConfigured
	}
	opts := append([]option.ClientOption{option.WithTokenSource(c.oauth2Config.TokenSource(ctx, token))}, c.apiOptions...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	return &Profile{GoogleID: info.Id, Name: info.Name, Email: info.Email, Picture: info.Picture}, nil
}

// Refresh exchanges a stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if c.oauth2Config == nil {
		return nil, ErrNotConfigured
	}
	if refreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}
	tok, err := c.oauth2Config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return tok, nil
}

// ExpiresIn is the token lifetime in seconds, 3600 when the provider omits it.
func ExpiresIn(tok *oauth2.Token, now time.Time) int64 {
	if tok == nil || tok.Expiry.IsZero() {
		return 3600
	}
	secs := int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	if secs <= 0 {
		return 3600
	}
	return secs
}
