package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingInterval is the checkout billing period.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// ParseInterval normalizes a raw interval value.
func ParseInterval(raw string) (BillingInterval, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(IntervalMonthly):
		return IntervalMonthly, true
	case string(IntervalYearly):
		return IntervalYearly, true
	}
	return "", false
}

// PriceTable maps "<plan>.<interval>" to a Stripe price ID.
type PriceTable map[string]string

// PriceConfigHolder resolves checkout price IDs. The table is read from
// prices.yml when present and hot-reloaded on change; individual entries can
// be overridden through STRIPE_PRICE_ID_<PLAN>_<INTERVAL> env vars.
type PriceConfigHolder struct {
	current atomic.Value // holds PriceTable
	v       *viper.Viper
}

func NewPriceConfigHolder() (*PriceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("prices")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/postloom")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STRIPE_PRICE_ID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &PriceConfigHolder{v: v}
	holder.current.Store(holder.read())

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		holder.current.Store(holder.read())
		log.Printf("[price-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PriceConfigHolder) read() PriceTable {
	table := PriceTable{}
	for _, plan := range []string{"free", "solo", "pro", "growth"} {
		for _, interval := range []string{string(IntervalMonthly), string(IntervalYearly)} {
			key := plan + "." + interval
			if id := strings.TrimSpace(h.v.GetString(key)); id != "" {
				table[key] = id
			}
		}
	}
	return table
}

// Resolve returns the Stripe price ID for a plan and interval. A missing
// entry is a configuration error naming the env key that would supply it.
func (h *PriceConfigHolder) Resolve(planName string, interval BillingInterval) (string, error) {
	planName = strings.ToLower(strings.TrimSpace(planName))
	table, _ := h.current.Load().(PriceTable)
	if id, ok := table[planName+"."+string(interval)]; ok {
		return id, nil
	}
	envKey := fmt.Sprintf("STRIPE_PRICE_ID_%s_%s", strings.ToUpper(planName), strings.ToUpper(string(interval)))
	return "", MissingKeyError{Key: envKey}
}
