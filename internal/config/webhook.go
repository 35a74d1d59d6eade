package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WebhookConfig is the runtime-reloadable slice of configuration used by the
// webhook endpoint. Keeping it separate from Config lets the signing secret
// rotate without a restart.
type WebhookConfig struct {
	Secret       string        `mapstructure:"secret"`
	SecretBase64 bool          `mapstructure:"secretBase64"`
	Path         string        `mapstructure:"path"`
	Tolerance    time.Duration `mapstructure:"tolerance"`
}

type WebhookConfigHolder struct {
	current atomic.Value // holds WebhookConfig
}

// NewWebhookConfigHolder loads webhook settings from cashier.yml when present,
// falling back to the environment-derived Config, and watches the file for
// secret rotation.
func NewWebhookConfigHolder(appCfg Config, log *zap.Logger) (*WebhookConfigHolder, error) {
	log = log.Named("config.webhook")
	defaults := WebhookConfig{
		Secret:       appCfg.WebhookSecret,
		SecretBase64: appCfg.WebhookSecretBase64,
		Path:         appCfg.WebhookPath,
		Tolerance:    appCfg.WebhookTolerance,
	}

	v := viper.New()
	v.SetConfigName("cashier")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/cashier-polar")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CASHIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("webhook.secret", defaults.Secret)
	v.SetDefault("webhook.secretBase64", defaults.SecretBase64)
	v.SetDefault("webhook.path", defaults.Path)
	v.SetDefault("webhook.tolerance", defaults.Tolerance)

	holder := &WebhookConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(defaults)
		return holder, nil
	}

	cfg, err := unmarshalWebhookConfig(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalWebhookConfig(v)
		if err != nil {
			log.Warn("webhook config reload ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("webhook config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *WebhookConfigHolder) Get() WebhookConfig {
	return h.current.Load().(WebhookConfig)
}

// Store replaces the current webhook configuration. Used by tests and by the
// secret rotation command.
func (h *WebhookConfigHolder) Store(cfg WebhookConfig) {
	h.current.Store(cfg)
}

func unmarshalWebhookConfig(v *viper.Viper) (WebhookConfig, error) {
	var cfg WebhookConfig
	if err := v.UnmarshalKey("webhook", &cfg); err != nil {
		return WebhookConfig{}, err
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return WebhookConfig{}, errors.New("webhook.secret cannot be empty")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = "/webhooks/polar"
	}
	return cfg, nil
}
