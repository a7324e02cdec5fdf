package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TariffCode is a harmonized tariff schedule entry.
type TariffCode struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Code        string       `gorm:"type:varchar(32);not null;uniqueIndex"`
	Description *string      `gorm:"type:text"`
	// RatePct is the flat ad valorem rate in percent.
	RatePct         *decimal.Decimal `gorm:"column:rate_pct;type:numeric(9,4)"`
	HasComplexRates bool             `gorm:"column:has_complex_rates;not null"`
	CreatedAt       time.Time        `gorm:"not null"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

func (TariffCode) TableName() string { return "tariff_codes" }

// RateDetail is a country, program and date scoped rate for a code. An empty
// CountryCode or Program applies to every country or program.
type RateDetail struct {
	ID            snowflake.ID     `gorm:"primaryKey"`
	TariffCodeID  snowflake.ID     `gorm:"column:tariff_code_id;not null;index:idx_rate_details_lookup,priority:1"`
	CountryCode   string           `gorm:"column:country_code;type:varchar(2);not null;default:'';index:idx_rate_details_lookup,priority:2"`
	Program       string           `gorm:"column:program;type:varchar(16);not null;default:''"`
	AdValoremPct  *decimal.Decimal `gorm:"column:ad_valorem_pct;type:numeric(9,4)"`
	EffectiveFrom time.Time        `gorm:"column:effective_from;not null;index:idx_rate_details_lookup,priority:3"`
	EffectiveTo   *time.Time       `gorm:"column:effective_to"`
	CreatedAt     time.Time        `gorm:"not null"`
}

func (RateDetail) TableName() string { return "tariff_rate_details" }

// RateSource names the layer of the resolution chain that produced a rate.
type RateSource string

const (
	RateSourceManual      RateSource = "manual"
	RateSourceSKUOverride RateSource = "sku_override"
	RateSourceRateDetail  RateSource = "rate_detail"
	RateSourceCodeFlat    RateSource = "code_flat"
	RateSourceNone        RateSource = "none"
)

// ResolvedRate is the outcome of resolving one invoice line.
type ResolvedRate struct {
	Pct    decimal.Decimal `json:"pct"`
	Source RateSource      `json:"source"`
	// TariffCode is set when the rate came from the catalog.
	TariffCode string `json:"tariff_code,omitempty"`
}

// RateQuery selects the detail row that applies to an invoice.
type RateQuery struct {
	TariffCodeID snowflake.ID
	Country      string
	// Program admits rows for this program besides the program-less ones.
	Program string
	At      time.Time
}
