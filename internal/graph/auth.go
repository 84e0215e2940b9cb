package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/tonimelisma/spbridge/internal/tokenfile"
)

// ErrNotLoggedIn is returned when no token file exists at the configured path.
var ErrNotLoggedIn = errors.New("graph: no saved token")

// defaultScopes are requested on refresh. Sites.Read.All is needed for site
// search; Files.Read.All for cross-site drive access.
var defaultScopes = []string{
	"offline_access",
	"Sites.Read.All",
	"Files.Read.All",
	"User.Read",
}

// AppRegistration identifies the Azure AD application whose refresh token
// is stored in the token file.
type AppRegistration struct {
	ClientID string
	Tenant   string // "common", "organizations" or a tenant id
}

// TokenSourceFromPath loads a token file written by an external login step
// and returns a TokenSource that silently refreshes it. Refreshed tokens are
// written back to the same file.
//
// The returned TokenSource binds ctx to the underlying oauth2 token source.
// ctx must outlive the TokenSource. If ctx is canceled, silent token refresh
// will fail. Callers should pass context.Background() for long-lived sessions.
func TokenSourceFromPath(ctx context.Context, tokenPath string, app AppRegistration, logger *slog.Logger) (TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tok, meta, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if tok == nil {
		return nil, fmt.Errorf("%w at %s", ErrNotLoggedIn, tokenPath)
	}

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	logger.Info("loaded saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	cfg := oauthConfig(tokenPath, app, meta, logger)
	src := cfg.TokenSource(ctx, tok)

	return &tokenBridge{src: src, logger: logger}, nil
}

// oauthConfig builds an oauth2.Config with OnTokenChange wired to persist
// refreshed tokens. meta is captured by the closure so metadata is preserved
// through silent token refreshes.
func oauthConfig(tokenPath string, app AppRegistration, meta map[string]string, logger *slog.Logger) *oauth2.Config {
	tenant := app.Tenant
	if tenant == "" {
		tenant = "common"
	}

	return &oauth2.Config{
		ClientID: app.ClientID,
		Scopes:   defaultScopes,
		Endpoint: microsoft.AzureADEndpoint(tenant),
		// Called by ReuseTokenSource after each silent refresh, outside its mutex.
		OnTokenChange: func(tok *oauth2.Token) {
			if err := tokenfile.Save(tokenPath, tok, meta); err != nil {
				logger.Warn("failed to persist refreshed token",
					slog.String("path", tokenPath),
					slog.String("error", err.Error()),
				)

				return
			}

			logger.Info("persisted refreshed token",
				slog.String("path", tokenPath),
				slog.Time("new_expiry", tok.Expiry),
			)
		},
	}
}

// tokenBridge adapts oauth2.TokenSource to graph.TokenSource.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("graph: obtaining token: %w", err)
	}

	return t.AccessToken, nil
}
