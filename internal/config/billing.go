package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingPolicy is operator-tunable billing behavior loaded from billing.yml.
// It covers due-term day counts, default late-fee and early-discount rates, and
// the invoice number sequence width. Amount semantics stay in the domain layer.
type BillingPolicy struct {
	DueTerms           map[string]int `mapstructure:"dueTerms"`
	LateFeePercent     float64        `mapstructure:"lateFeePercent"`
	EarlyDiscountDays  int            `mapstructure:"earlyDiscountDays"`
	EarlyDiscountRate  float64        `mapstructure:"earlyDiscountRate"`
	NumberSequencePad  int            `mapstructure:"numberSequencePad"`
	NumberSeparator    string         `mapstructure:"numberSeparator"`
	OverdueGraceDays   int            `mapstructure:"overdueGraceDays"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		DueTerms: map[string]int{
			"net_15": 15,
			"net_30": 30,
			"net_45": 45,
			"net_60": 60,
		},
		LateFeePercent:    0,
		EarlyDiscountDays: 0,
		EarlyDiscountRate: 0,
		NumberSequencePad: 3,
		NumberSeparator:   "-",
		OverdueGraceDays:  0,
	}
}

type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

func NewBillingPolicyHolder(log *zap.Logger) (*BillingPolicyHolder, error) {
	log = log.Named("billing.policy")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/neibrpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NEIBRPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("billing.dueTerms", defaults.DueTerms)
		v.SetDefault("billing.numberSequencePad", defaults.NumberSequencePad)
		v.SetDefault("billing.numberSeparator", defaults.NumberSeparator)
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	applyPolicyDefaults(&policy, defaults)
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Error("reload failed", zap.Error(err))
			return
		}
		applyPolicyDefaults(&updated, defaults)
		if err := validateBillingPolicy(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingPolicyHolder) Get() BillingPolicy {
	return h.current.Load().(BillingPolicy)
}

// NewStaticBillingPolicyHolder wraps a fixed policy without file watching.
func NewStaticBillingPolicyHolder(policy BillingPolicy) *BillingPolicyHolder {
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func applyPolicyDefaults(policy *BillingPolicy, defaults BillingPolicy) {
	if len(policy.DueTerms) == 0 {
		policy.DueTerms = defaults.DueTerms
	}
	if policy.NumberSequencePad <= 0 {
		policy.NumberSequencePad = defaults.NumberSequencePad
	}
	if policy.NumberSeparator == "" {
		policy.NumberSeparator = defaults.NumberSeparator
	}
}

func validateBillingPolicy(policy BillingPolicy) error {
	if len(policy.DueTerms) == 0 {
		return errors.New("billing.dueTerms cannot be empty")
	}
	for term, days := range policy.DueTerms {
		if days < 0 {
			return errors.New("billing.dueTerms." + term + " cannot be negative")
		}
	}
	if policy.LateFeePercent < 0 || policy.LateFeePercent > 100 {
		return errors.New("billing.lateFeePercent must be within [0,100]")
	}
	if policy.EarlyDiscountRate < 0 || policy.EarlyDiscountRate > 100 {
		return errors.New("billing.earlyDiscountRate must be within [0,100]")
	}
	return nil
}
