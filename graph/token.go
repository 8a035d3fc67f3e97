package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"fleettrack/config"
)

// TokenProvider yields bearer tokens for Graph calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// DeviceCodeTokenProvider acquires delegated tokens against the Microsoft
// identity platform. It tries a silent refresh from the on-disk token cache
// first and falls back to the device-code flow, mirroring the silent/popup
// pair of the browser client it replaced.
type DeviceCodeTokenProvider struct {
	conf      *oauth2.Config
	cachePath string

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewDeviceCodeTokenProvider builds a provider for the configured tenant and
// application.
func NewDeviceCodeTokenProvider(cfg config.GraphConfig) *DeviceCodeTokenProvider {
	authority := "https://login.microsoftonline.com/" + cfg.TenantID
	return &DeviceCodeTokenProvider{
		conf: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       authority + "/oauth2/v2.0/authorize",
				TokenURL:      authority + "/oauth2/v2.0/token",
				DeviceAuthURL: authority + "/oauth2/v2.0/devicecode",
			},
		},
		cachePath: cfg.TokenCachePath,
	}
}

// Token returns a valid access token, refreshing or re-authenticating as
// needed. Both paths failing yields an AuthError.
func (p *DeviceCodeTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source != nil {
		if tok, err := p.source.Token(); err == nil {
			return tok.AccessToken, nil
		}
		p.source = nil
	}

	silentErr := p.trySilent(ctx)
	if silentErr == nil {
		tok, err := p.source.Token()
		if err == nil {
			p.persist(tok)
			return tok.AccessToken, nil
		}
		silentErr = err
		p.source = nil
	}
	log.Printf("⚠️  Silent token acquisition failed, starting device-code flow: %v", silentErr)

	tok, err := p.interactive(ctx)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("silent: %v; interactive: %w", silentErr, err)}
	}
	p.source = p.conf.TokenSource(ctx, tok)
	p.persist(tok)
	return tok.AccessToken, nil
}

func (p *DeviceCodeTokenProvider) trySilent(ctx context.Context) error {
	data, err := os.ReadFile(p.cachePath)
	if err != nil {
		return fmt.Errorf("no cached token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("corrupt token cache: %w", err)
	}
	p.source = p.conf.TokenSource(ctx, &tok)
	return nil
}

func (p *DeviceCodeTokenProvider) interactive(ctx context.Context) (*oauth2.Token, error) {
	resp, err := p.conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request: %w", err)
	}
	log.Printf("🔐 To sign in, open %s and enter code %s", resp.VerificationURI, resp.UserCode)
	tok, err := p.conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device access token: %w", err)
	}
	return tok, nil
}

func (p *DeviceCodeTokenProvider) persist(tok *oauth2.Token) {
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	if err := os.WriteFile(p.cachePath, data, 0o600); err != nil {
		log.Printf("⚠️  Failed to persist token cache: %v", err)
	}
}

// StaticTokenProvider returns a fixed token. Used by tests and by callers
// that manage token acquisition themselves.
type StaticTokenProvider string

func (s StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return string(s), nil
}
