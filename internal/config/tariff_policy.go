package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultFreightPoolName = "Freight Cost"

// TariffPolicy is the operator-maintained part of tariff handling that does
// not live in the tariff catalog.
type TariffPolicy struct {
	// FreightPoolName is matched case-insensitively against custom pool names
	// to classify them as freight.
	FreightPoolName string
	// Surtaxes maps an upper-case country code to a flat percentage.
	Surtaxes map[string]decimal.Decimal
}

// SurtaxFor returns the flat surtax percentage for a country of origin.
func (p TariffPolicy) SurtaxFor(country string) (decimal.Decimal, bool) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return decimal.Zero, false
	}
	pct, ok := p.Surtaxes[country]
	if !ok || pct.IsZero() {
		return decimal.Zero, false
	}
	return pct, true
}

// IsFreightPool reports whether a pool name is the reserved freight name.
func (p TariffPolicy) IsFreightPool(name string) bool {
	reserved := strings.TrimSpace(p.FreightPoolName)
	if reserved == "" {
		reserved = DefaultFreightPoolName
	}
	return strings.EqualFold(strings.TrimSpace(name), reserved)
}

type tariffPolicyFile struct {
	FreightPoolName string          `mapstructure:"freightPoolName"`
	Surtaxes        []surtaxSetting `mapstructure:"surtaxes"`
}

type surtaxSetting struct {
	Country string `mapstructure:"country"`
	Percent string `mapstructure:"percent"`
}

func DefaultTariffPolicy() TariffPolicy {
	return TariffPolicy{
		FreightPoolName: DefaultFreightPoolName,
		Surtaxes:        map[string]decimal.Decimal{},
	}
}

type TariffPolicyHolder struct {
	current atomic.Value // holds TariffPolicy
}

// NewTariffPolicyHolder loads tariff.yml from the standard locations and
// watches it for changes.
func NewTariffPolicyHolder(log *zap.Logger) (*TariffPolicyHolder, error) {
	return LoadTariffPolicy(log, "/var/lib/landedcost/config", "/etc/landedcost", ".")
}

// NewStaticTariffPolicyHolder returns a holder that never reloads.
func NewStaticTariffPolicyHolder(policy TariffPolicy) *TariffPolicyHolder {
	if policy.Surtaxes == nil {
		policy.Surtaxes = map[string]decimal.Decimal{}
	}
	holder := &TariffPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func LoadTariffPolicy(log *zap.Logger, paths ...string) (*TariffPolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tariff-policy")

	v := viper.New()
	v.SetConfigName("tariff")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("LANDEDCOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	policy := DefaultTariffPolicy()
	if found {
		parsed, err := decodeTariffPolicy(v)
		if err != nil {
			return nil, err
		}
		policy = parsed
	}

	holder := &TariffPolicyHolder{}
	holder.current.Store(policy)

	if !found {
		log.Info("tariff policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeTariffPolicy(v)
		if err != nil {
			log.Warn("invalid tariff policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tariff policy reloaded", zap.String("file", e.Name), zap.Int("surtaxes", len(updated.Surtaxes)))
	})

	return holder, nil
}

func (h *TariffPolicyHolder) Get() TariffPolicy {
	return h.current.Load().(TariffPolicy)
}

func decodeTariffPolicy(v *viper.Viper) (TariffPolicy, error) {
	var raw tariffPolicyFile
	if err := v.UnmarshalKey("tariff", &raw); err != nil {
		return TariffPolicy{}, err
	}

	policy := DefaultTariffPolicy()
	if name := strings.TrimSpace(raw.FreightPoolName); name != "" {
		policy.FreightPoolName = name
	}

	for _, item := range raw.Surtaxes {
		country := strings.ToUpper(strings.TrimSpace(item.Country))
		if country == "" {
			return TariffPolicy{}, errors.New("tariff.surtaxes: country cannot be empty")
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(item.Percent))
		if err != nil {
			return TariffPolicy{}, fmt.Errorf("tariff.surtaxes[%s]: %w", country, err)
		}
		if pct.IsNegative() {
			return TariffPolicy{}, fmt.Errorf("tariff.surtaxes[%s]: percent cannot be negative", country)
		}
		if _, dup := policy.Surtaxes[country]; dup {
			return TariffPolicy{}, fmt.Errorf("tariff.surtaxes[%s]: duplicate country", country)
		}
		policy.Surtaxes[country] = pct
	}

	return policy, nil
}
