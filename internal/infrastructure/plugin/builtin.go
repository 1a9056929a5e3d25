package plugin

import (
	"github.com/jiffoo/mall/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Built-in plugin slugs
const (
	SlugCOD         = "cod"
	SlugStripe      = "stripe"
	SlugGoogleOAuth = "google-oauth"
	SlugNewsletter  = "newsletter"
)

// NewBuiltinRegistry loads the embedded manifests with the built-in providers
func NewBuiltinRegistry(cfg config.PluginsConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Load(manifestFS, "manifests",
		NewCOD(),
		NewStripe(cfg.StripeAPIKey, cfg.StripeCheckoutURL),
		NewGoogleOAuth(cfg.GoogleClientID),
		NewNewsletter(logger),
	)
}
