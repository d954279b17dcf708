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

const (
	// FanoutPolicyUniform treats every side channel as best-effort except the
	// durable notification row written on project status changes.
	FanoutPolicyUniform = "uniform"
	// FanoutPolicyLegacy keeps realtime publish failures fatal, as the first
	// release did.
	FanoutPolicyLegacy = "legacy"

	DefaultChannelTimeout = 5 * time.Second
)

// LifecycleConfig holds the tunables read on every lifecycle operation.
type LifecycleConfig struct {
	StrictTransitions bool
	FanoutPolicy      string
	ChannelTimeout    time.Duration
}

func (c LifecycleConfig) LegacyFanout() bool {
	return c.FanoutPolicy == FanoutPolicyLegacy
}

func NormalizeFanoutPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case FanoutPolicyLegacy:
		return FanoutPolicyLegacy
	default:
		return FanoutPolicyUniform
	}
}

// LifecycleSource is read by services that honour hot-reloaded lifecycle
// settings.
type LifecycleSource interface {
	Get() LifecycleConfig
}

// StaticLifecycle is a fixed LifecycleSource, mostly for tests.
type StaticLifecycle LifecycleConfig

func (s StaticLifecycle) Get() LifecycleConfig { return LifecycleConfig(s) }

type LifecycleHolder struct {
	current atomic.Value // holds LifecycleConfig
}

// NewLifecycleHolder seeds the holder from env-derived defaults, then overlays
// lifecycle.yml when present and watches it for changes.
func NewLifecycleHolder(cfg Config, log *zap.Logger) (*LifecycleHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.lifecycle")

	v := viper.New()
	v.SetConfigName("lifecycle")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(cfg.LifecycleFile); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/agencyflow")
	v.AddConfigPath(".")

	v.SetDefault("lifecycle.strictTransitions", cfg.Lifecycle.StrictTransitions)
	v.SetDefault("lifecycle.fanoutPolicy", cfg.Lifecycle.FanoutPolicy)
	v.SetDefault("lifecycle.channelTimeout", cfg.Lifecycle.ChannelTimeout)

	holder := &LifecycleHolder{}

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	holder.current.Store(decodeLifecycle(v))

	if found {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := decodeLifecycle(v)
			holder.current.Store(updated)
			log.Info("lifecycle config reloaded",
				zap.String("file", e.Name),
				zap.Bool("strict_transitions", updated.StrictTransitions),
				zap.String("fanout_policy", updated.FanoutPolicy),
			)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *LifecycleHolder) Get() LifecycleConfig {
	return h.current.Load().(LifecycleConfig)
}

// decodeLifecycle reads keys one by one so defaults fill any key the file
// leaves out.
func decodeLifecycle(v *viper.Viper) LifecycleConfig {
	cfg := LifecycleConfig{
		StrictTransitions: v.GetBool("lifecycle.strictTransitions"),
		FanoutPolicy:      NormalizeFanoutPolicy(v.GetString("lifecycle.fanoutPolicy")),
		ChannelTimeout:    v.GetDuration("lifecycle.channelTimeout"),
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = DefaultChannelTimeout
	}
	return cfg
}
