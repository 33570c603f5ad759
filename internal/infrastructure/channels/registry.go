package channels

import (
	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/infrastructure/config"
)

// BuildRegistry constructs an adapter for every enabled channel and
// registers it
func BuildRegistry(cfg *config.Config, creds channel.CredentialStore) (*channel.Registry, error) {
	registry := channel.NewRegistry()

	if cfg.Channels.Opencart.Enabled {
		adapter, err := NewOpencartAdapter(&OpencartConfig{
			Domain:    cfg.Channels.Opencart.Domain,
			Username:  cfg.Channels.Opencart.Username,
			Password:  cfg.Channels.Opencart.Password,
			RateLimit: cfg.Channels.Opencart.RateLimit,
			RateBurst: cfg.Channels.Opencart.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)
	}

	if cfg.Channels.Lazada.Enabled {
		adapter, err := NewLazadaAdapter(&LazadaConfig{
			Domain:      cfg.Channels.Lazada.Domain,
			AuthDomain:  cfg.Channels.Lazada.AuthDomain,
			AppKey:      cfg.Channels.Lazada.AppKey,
			AppSecret:   cfg.Channels.Lazada.AppSecret,
			RedirectURL: cfg.Channels.Lazada.RedirectURL,
			RateLimit:   cfg.Channels.Lazada.RateLimit,
			RateBurst:   cfg.Channels.Lazada.RateBurst,
		}, creds)
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)
	}

	if cfg.Channels.Shopee.Enabled {
		adapter, err := NewShopeeAdapter(&ShopeeConfig{
			Domain:      cfg.Channels.Shopee.Domain,
			PartnerID:   cfg.Channels.Shopee.PartnerID,
			PartnerKey:  cfg.Channels.Shopee.PartnerKey,
			ShopID:      cfg.Channels.Shopee.ShopID,
			RedirectURL: cfg.Channels.Shopee.RedirectURL,
			RateLimit:   cfg.Channels.Shopee.RateLimit,
			RateBurst:   cfg.Channels.Shopee.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)
	}

	if cfg.Channels.Woocommerce.Enabled {
		adapter, err := NewWoocommerceAdapter(&WoocommerceConfig{
			Domain:         cfg.Channels.Woocommerce.Domain,
			ConsumerKey:    cfg.Channels.Woocommerce.ConsumerKey,
			ConsumerSecret: cfg.Channels.Woocommerce.ConsumerSecret,
			RateLimit:      cfg.Channels.Woocommerce.RateLimit,
			RateBurst:      cfg.Channels.Woocommerce.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(adapter)
	}

	return registry, nil
}
