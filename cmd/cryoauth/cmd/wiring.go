package cmd

import (
	"context"
	"fmt"

	"github.com/coredex-source/Cryovex-Launcher/config"
	"github.com/coredex-source/Cryovex-Launcher/internal/exchange"
	"github.com/coredex-source/Cryovex-Launcher/internal/store"
	"github.com/coredex-source/Cryovex-Launcher/internal/store/bolt"
	"github.com/coredex-source/Cryovex-Launcher/internal/store/redis"
	"github.com/coredex-source/Cryovex-Launcher/internal/transport"
)

func exchangeConfig(cfg *config.Config) exchange.Config {
	return exchange.Config{
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
		Endpoints: exchange.Endpoints{
			MicrosoftToken:   cfg.MicrosoftTokenURL,
			XboxLiveAuth:     cfg.XboxLiveAuthURL,
			XstsAuth:         cfg.XstsAuthURL,
			MinecraftAuth:    cfg.MinecraftAuthURL,
			MinecraftProfile: cfg.MinecraftProfileURL,
		},
	}
}

func (a *app) newPipeline() *exchange.Pipeline {
	t := transport.NewHTTPTransport(transport.Config{
		Timeout:   a.cfg.HTTPTimeout,
		UserAgent: a.cfg.UserAgent,
	})
	return exchange.New(t, exchangeConfig(a.cfg),
		exchange.WithObserver(exchange.NewLogObserver(a.logger), a.metrics),
	)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverFile:
		return store.NewFileStore(cfg.StorePath), nil
	case config.StoreDriverBolt:
		return bolt.Open(cfg.StorePath)
	case config.StoreDriverRedis:
		return redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	case config.StoreDriverMemory:
		return store.NewMemoryStore(0), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.StoreDriver)
	}
}
