package trakt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/episodesync/internal/remote"
	"github.com/tonimelisma/episodesync/internal/tokenfile"
)

// ErrNotLoggedIn is returned when no saved token exists.
var ErrNotLoggedIn = errors.New("trakt: not logged in")

const serviceName = "trakt"

// AuthConfig describes the OAuth application and where its token lives.
type AuthConfig struct {
	BaseURL      string // API base, DefaultBaseURL if empty
	ClientID     string
	ClientSecret string
	TokenPath    string
}

// DeviceAuth holds the device code fields the CLI shows to the user.
type DeviceAuth struct {
	UserCode        string
	VerificationURI string
}

// Login performs the device code flow: it requests a device code, calls
// display so the CLI can show it, polls until the user authorizes, saves
// the token, and returns a refreshing TokenSource.
//
// ctx must outlive the returned TokenSource; refreshes use it.
func Login(ctx context.Context, cfg AuthConfig, display func(DeviceAuth), logger *slog.Logger) (remote.TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return doLogin(ctx, cfg.TokenPath, oauthConfig(cfg), display, logger, time.Now)
}

func doLogin(
	ctx context.Context,
	tokenPath string,
	cfg *oauth2.Config,
	display func(DeviceAuth),
	logger *slog.Logger,
	nowFunc func() time.Time,
) (remote.TokenSource, error) {
	logger.Info("starting device code auth flow", slog.String("path", tokenPath))

	da, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("trakt: device auth request failed: %w", err)
	}

	display(DeviceAuth{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
	})

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("trakt: device code authorization failed: %w", err)
	}

	if err := tokenfile.Save(tokenPath, serviceName, tok, nowFunc()); err != nil {
		return nil, fmt.Errorf("trakt: saving token: %w", err)
	}

	logger.Info("login successful",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return newTokenBridge(cfg.TokenSource(ctx, tok), tok, tokenPath, logger, nowFunc), nil
}

// TokenSourceFromPath loads the saved token and returns a TokenSource that
// refreshes it and persists every refreshed token. Returns ErrNotLoggedIn if
// no token file exists.
func TokenSourceFromPath(ctx context.Context, cfg AuthConfig, logger *slog.Logger) (remote.TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tf, err := tokenfile.Load(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	if tf == nil {
		return nil, ErrNotLoggedIn
	}

	logger.Debug("loaded saved token",
		slog.String("path", cfg.TokenPath),
		slog.Time("expiry", tf.Token.Expiry),
		slog.Time("saved_at", tf.SavedAt),
	)

	src := oauthConfig(cfg).TokenSource(ctx, tf.Token)

	return newTokenBridge(src, tf.Token, cfg.TokenPath, logger, time.Now), nil
}

// Logout removes the saved token.
func Logout(tokenPath string, logger *slog.Logger) error {
	if err := tokenfile.Remove(tokenPath); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("logout: removed token file", slog.String("path", tokenPath))
	}

	return nil
}

func oauthConfig(cfg AuthConfig) *oauth2.Config {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:       base + "/oauth/authorize",
			TokenURL:      base + "/oauth/token",
			DeviceAuthURL: base + "/oauth/device/code",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// tokenBridge adapts oauth2.TokenSource to remote.TokenSource and writes
// every refreshed token back to disk.
type tokenBridge struct {
	src     oauth2.TokenSource
	path    string
	logger  *slog.Logger
	nowFunc func() time.Time

	mu   sync.Mutex
	last string // access token last persisted
}

func newTokenBridge(
	src oauth2.TokenSource, initial *oauth2.Token, path string, logger *slog.Logger, nowFunc func() time.Time,
) *tokenBridge {
	return &tokenBridge{
		src:     src,
		path:    path,
		logger:  logger,
		nowFunc: nowFunc,
		last:    initial.AccessToken,
	}
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("trakt: obtaining token: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if t.AccessToken != b.last {
		b.logger.Info("token refreshed", slog.Time("new_expiry", t.Expiry))

		// A failed save only costs a refresh on the next start.
		if err := tokenfile.Save(b.path, serviceName, t, b.nowFunc()); err != nil {
			b.logger.Warn("failed to persist refreshed token",
				slog.String("path", b.path),
				slog.String("error", err.Error()),
			)
		} else {
			b.last = t.AccessToken
		}
	}

	return t.AccessToken, nil
}
