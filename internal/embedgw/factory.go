package embedgw

import (
	"github.com/foresthq/forest/internal/embedgw/gatewaycache"
	"github.com/foresthq/forest/internal/fconfig"
	"github.com/foresthq/forest/internal/ferrors"
)

// New builds a Gateway from fconfig.EmbeddingsConfig: provider selection,
// then cache wrapping unless disabled.
func New(cfg fconfig.EmbeddingsConfig) (Gateway, error) {
	var (
		gw  Gateway
		err error
	)

	switch cfg.Provider {
	case "local":
		lc := DefaultLocalConfig()
		if cfg.Model != "" {
			lc.Model = cfg.Model
		}
		if cfg.Dimensions > 0 {
			lc.Dimensions = cfg.Dimensions
		}
		if cfg.LocalHost != "" {
			lc.Host = cfg.LocalHost
		}
		if cfg.RequestTimeout > 0 {
			lc.Timeout = cfg.RequestTimeout
		}
		gw = NewLocal(lc)

	case "remote":
		gw, err = NewRemote(RemoteConfig{
			APIKey:  cfg.RemoteAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.RemoteBaseURL,
		})

	case "mock":
		gw = NewMock(cfg.Dimensions)

	case "none":
		gw = NewNone()

	default:
		return nil, ferrors.Validation("unknown embeddings provider: "+cfg.Provider, nil)
	}

	if err != nil {
		return nil, err
	}

	if cfg.CacheQueries && cfg.Provider != "none" {
		return gatewaycache.New(gw, cfg.CacheSize), nil
	}
	return gw, nil
}
