package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries the hot-reloadable settings of the GCC pipeline.
type BillingConfig struct {
	Timezone              string              `mapstructure:"timezone"`
	VATRate               float64             `mapstructure:"vatRate"`
	InvoiceNumberTemplate string              `mapstructure:"invoiceNumberTemplate"`
	GccDefaults           GccDefaults         `mapstructure:"gccDefaults"`
	Queues                map[string][]string `mapstructure:"queues"`
}

// GccDefaults are stamped on every new certificate.
type GccDefaults struct {
	CapexRecoveryAmount float64 `mapstructure:"capexRecoveryAmount"`
	WithVat             bool    `mapstructure:"withVat"`
	DepartmentID        int64   `mapstructure:"departmentId"`
	LetterID            int64   `mapstructure:"letterId"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Timezone:              "UTC",
		VATRate:               7.5,
		InvoiceNumberTemplate: "INV-{YYYY}{MM}-{ULID}",
		GccDefaults: GccDefaults{
			CapexRecoveryAmount: 0,
			WithVat:             false,
			DepartmentID:        1,
			LetterID:            1,
		},
		Queues: map[string][]string{
			"gas_consumption_created": {"gas-consumption"},
			"gas_consumption_updated": {"gas-consumption"},
		},
	}
}

// QueuesFor returns the queue names an event is routed to.
// Viper lower-cases map keys, so lookups are case-insensitive.
func (c BillingConfig) QueuesFor(event string) []string {
	key := strings.ToLower(strings.TrimSpace(event))
	for name, queues := range c.Queues {
		if strings.ToLower(name) == key {
			return queues
		}
	}
	return nil
}

// Location resolves the billing timezone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config, mainly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(cfg Config, log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("billing.config")

	v := viper.New()
	if path := strings.TrimSpace(cfg.BillingConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/gascustody")
		v.AddConfigPath(".")
	}

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.timezone", defaults.Timezone)
	v.SetDefault("billing.vatRate", defaults.VATRate)
	v.SetDefault("billing.invoiceNumberTemplate", defaults.InvoiceNumberTemplate)
	v.SetDefault("billing.gccDefaults.capexRecoveryAmount", defaults.GccDefaults.CapexRecoveryAmount)
	v.SetDefault("billing.gccDefaults.withVat", defaults.GccDefaults.WithVat)
	v.SetDefault("billing.gccDefaults.departmentId", defaults.GccDefaults.DepartmentID)
	v.SetDefault("billing.gccDefaults.letterId", defaults.GccDefaults.LetterID)
	v.SetDefault("billing.queues", defaults.Queues)

	loaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && strings.TrimSpace(cfg.BillingConfigPath) != "" {
			return nil, fmt.Errorf("read billing config: %w", err)
		}
		loaded = false
		log.Info("billing config file not found, using defaults")
	}

	current, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(current)
	if !loaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v)
		if err != nil {
			log.Warn("billing config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.VATRate < 0 || cfg.VATRate > 100 {
		return errors.New("billing.vatRate must be between 0 and 100")
	}
	if cfg.GccDefaults.CapexRecoveryAmount < 0 {
		return errors.New("billing.gccDefaults.capexRecoveryAmount cannot be negative")
	}
	if cfg.GccDefaults.DepartmentID <= 0 {
		return errors.New("billing.gccDefaults.departmentId must be positive")
	}
	if cfg.GccDefaults.LetterID <= 0 {
		return errors.New("billing.gccDefaults.letterId must be positive")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone)); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	return nil
}
