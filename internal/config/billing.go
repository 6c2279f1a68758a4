package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig is the hot-reloadable part of the billing rules.
type BillingConfig struct {
	PenaltyRate          string `mapstructure:"penaltyRate"`
	FiscalYearStartMonth int    `mapstructure:"fiscalYearStartMonth"`
	DueDay               int    `mapstructure:"dueDay"`
	Currency             string `mapstructure:"currency"`
	CompanyName          string `mapstructure:"companyName"`
	CompanyAddress       string `mapstructure:"companyAddress"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		PenaltyRate:          "0.015",
		FiscalYearStartMonth: int(time.April),
		DueDay:               15,
		Currency:             "INR",
		CompanyName:          "Utility Billing Office",
	}
}

// Rules converts the configuration into engine constants.
func (c BillingConfig) Rules() billingrules.Rules {
	rules := billingrules.DefaultRules()
	if rate, err := decimal.NewFromString(strings.TrimSpace(c.PenaltyRate)); err == nil {
		rules.PenaltyRate = rate
	}
	if c.FiscalYearStartMonth >= 1 && c.FiscalYearStartMonth <= 12 {
		rules.FiscalYearStartMonth = time.Month(c.FiscalYearStartMonth)
	}
	return rules
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed configuration, mostly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("billing-config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/utilitybill/config")
	v.AddConfigPath("/etc/utilitybill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("UTILITYBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.penaltyRate", defaults.PenaltyRate)
	v.SetDefault("billing.fiscalYearStartMonth", defaults.FiscalYearStartMonth)
	v.SetDefault("billing.dueDay", defaults.DueDay)
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.companyName", defaults.CompanyName)
	v.SetDefault("billing.companyAddress", defaults.CompanyAddress)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !configFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.PenaltyRate))
	if err != nil {
		return fmt.Errorf("billing.penaltyRate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("billing.penaltyRate must be in [0, 1)")
	}
	if cfg.FiscalYearStartMonth < 1 || cfg.FiscalYearStartMonth > 12 {
		return errors.New("billing.fiscalYearStartMonth must be 1..12")
	}
	if cfg.DueDay < 1 || cfg.DueDay > 28 {
		return errors.New("billing.dueDay must be 1..28")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	return nil
}
