package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/smallbiznis/landedcost/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) tariffdomain.Repository {
	return &repository{db: db}
}

func (r *repository) UpsertCode(ctx context.Context, code *tariffdomain.TariffCode) (*tariffdomain.TariffCode, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "rate_pct", "has_complex_rates", "updated_at"}),
	}).Create(code).Error
	if err != nil {
		return nil, err
	}
	return r.FindCodeByCode(ctx, code.Code)
}

func (r *repository) FindCodeByCode(ctx context.Context, code string) (*tariffdomain.TariffCode, error) {
	return r.findCode(ctx, "code = ?", code)
}

func (r *repository) FindCodeByID(ctx context.Context, id snowflake.ID) (*tariffdomain.TariffCode, error) {
	return r.findCode(ctx, "id = ?", id)
}

func (r *repository) findCode(ctx context.Context, query string, arg any) (*tariffdomain.TariffCode, error) {
	var code tariffdomain.TariffCode
	err := r.db.WithContext(ctx).Where(query, arg).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

func (r *repository) ListCodes(ctx context.Context, req tariffdomain.ListCodesRequest) ([]tariffdomain.TariffCode, error) {
	var items []tariffdomain.TariffCode
	stmt := r.db.WithContext(ctx).Model(&tariffdomain.TariffCode{})

	if req.Code != "" {
		stmt = stmt.Where("code = ?", req.Code)
	}

	sort := option.WithQuerySortBy(req.SortBy, req.OrderBy, map[string]bool{
		"code":       true,
		"created_at": true,
		"updated_at": true,
	})
	sort.Default = "code"
	stmt = option.WithSortBy(sort).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MarkComplexRates(ctx context.Context, id snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tariff_codes SET has_complex_rates = ?, updated_at = ? WHERE id = ?`,
		true, at, id,
	).Error
}

func (r *repository) InsertRateDetail(ctx context.Context, detail *tariffdomain.RateDetail) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO tariff_rate_details (
			id, tariff_code_id, country_code, program, ad_valorem_pct, effective_from, effective_to, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		detail.ID,
		detail.TariffCodeID,
		detail.CountryCode,
		detail.Program,
		detail.AdValoremPct,
		detail.EffectiveFrom,
		detail.EffectiveTo,
		detail.CreatedAt,
	).Error
}

func (r *repository) ListRateDetails(ctx context.Context, codeID snowflake.ID) ([]tariffdomain.RateDetail, error) {
	var items []tariffdomain.RateDetail
	err := r.db.WithContext(ctx).
		Where("tariff_code_id = ?", codeID).
		Order("country_code ASC").
		Order("program ASC").
		Order("effective_from DESC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// FindEffectiveRate ranks candidates country-specific first, then
// program-specific, then by the latest effective_from. Rows for a program are
// only candidates when the query claims that program.
func (r *repository) FindEffectiveRate(ctx context.Context, q tariffdomain.RateQuery) (*tariffdomain.RateDetail, error) {
	var detail tariffdomain.RateDetail
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, tariff_code_id, country_code, program, ad_valorem_pct, effective_from, effective_to, created_at
		FROM tariff_rate_details
		WHERE tariff_code_id = ?
		  AND country_code IN (?, '')
		  AND program IN (?, '')
		  AND effective_from <= ?
		  AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY CASE WHEN country_code = '' THEN 1 ELSE 0 END,
		         CASE WHEN program = '' THEN 1 ELSE 0 END,
		         effective_from DESC,
		         id DESC
		LIMIT 1`,
		q.TariffCodeID, q.Country, q.Program, q.At, q.At,
	).Scan(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, nil
	}
	return &detail, nil
}
