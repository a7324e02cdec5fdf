package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	UpsertCode(ctx context.Context, code *TariffCode) (*TariffCode, error)
	FindCodeByCode(ctx context.Context, code string) (*TariffCode, error)
	FindCodeByID(ctx context.Context, id snowflake.ID) (*TariffCode, error)
	ListCodes(ctx context.Context, req ListCodesRequest) ([]TariffCode, error)
	MarkComplexRates(ctx context.Context, id snowflake.ID, at time.Time) error

	InsertRateDetail(ctx context.Context, detail *RateDetail) error
	ListRateDetails(ctx context.Context, codeID snowflake.ID) ([]RateDetail, error)
	// FindEffectiveRate returns the best matching detail or nil.
	FindEffectiveRate(ctx context.Context, q RateQuery) (*RateDetail, error)
}
