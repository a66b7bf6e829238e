package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultPlan is the tier applied to users without a recognised plan.
const DefaultPlan = "none"

// PlanLimits is the per-window request quota of a subscription tier.
type PlanLimits struct {
	PerKey  int `mapstructure:"perKey" json:"per_key"`
	PerUser int `mapstructure:"perUser" json:"per_user"`
	PerIP   int `mapstructure:"perIp" json:"per_ip"`
}

// PlansConfig is the plan tier table used by the rate limiter.
type PlansConfig struct {
	WindowSeconds int                   `mapstructure:"windowSeconds"`
	Plans         map[string]PlanLimits `mapstructure:"plans"`
}

func DefaultPlansConfig() PlansConfig {
	return PlansConfig{
		WindowSeconds: 60,
		Plans: map[string]PlanLimits{
			"none":    {PerKey: 5, PerUser: 10, PerIP: 20},
			"starter": {PerKey: 10, PerUser: 20, PerIP: 20},
			"pro":     {PerKey: 30, PerUser: 60, PerIP: 20},
			"max":     {PerKey: 100, PerUser: 200, PerIP: 20},
		},
	}
}

type PlansHolder struct {
	current atomic.Value // holds PlansConfig
}

// NewStaticPlansHolder wraps a fixed table without file watching.
func NewStaticPlansHolder(cfg PlansConfig) *PlansHolder {
	holder := &PlansHolder{}
	holder.current.Store(normalizePlans(cfg))
	return holder
}

// NewPlansHolder reads plans.yml and keeps it hot-reloaded.
func NewPlansHolder(cfg Config, log *zap.Logger) (*PlansHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.plans")

	v := viper.New()
	explicit := strings.TrimSpace(cfg.PlansConfigPath)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/gatekeeper")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read plans config: %w", err)
		}
		log.Info("plans config not found, using defaults")
		return NewStaticPlansHolder(DefaultPlansConfig()), nil
	}

	loaded, err := unmarshalPlans(v)
	if err != nil {
		return nil, err
	}

	holder := &PlansHolder{}
	holder.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalPlans(v)
		if err != nil {
			log.Warn("plans config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plans config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PlansHolder) Get() PlansConfig {
	return h.current.Load().(PlansConfig)
}

func unmarshalPlans(v *viper.Viper) (PlansConfig, error) {
	var cfg PlansConfig
	if err := v.UnmarshalKey("rateLimit", &cfg); err != nil {
		return PlansConfig{}, err
	}
	cfg = normalizePlans(cfg)
	if err := validatePlans(cfg); err != nil {
		return PlansConfig{}, err
	}
	return cfg, nil
}

func normalizePlans(cfg PlansConfig) PlansConfig {
	plans := make(map[string]PlanLimits, len(cfg.Plans))
	for name, limits := range cfg.Plans {
		plans[strings.ToLower(strings.TrimSpace(name))] = limits
	}
	cfg.Plans = plans
	return cfg
}

func validatePlans(cfg PlansConfig) error {
	if cfg.WindowSeconds <= 0 {
		return errors.New("rateLimit.windowSeconds must be positive")
	}
	if _, ok := cfg.Plans[DefaultPlan]; !ok {
		return fmt.Errorf("rateLimit.plans must define %q", DefaultPlan)
	}
	for name, limits := range cfg.Plans {
		if limits.PerKey <= 0 || limits.PerUser <= 0 || limits.PerIP <= 0 {
			return fmt.Errorf("rateLimit.plans.%s limits must be positive", name)
		}
	}
	return nil
}
