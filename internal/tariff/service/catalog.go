package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/landedcost/internal/clock"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type CatalogParam struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  tariffdomain.Repository
}

type Catalog struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  tariffdomain.Repository
}

func NewCatalogService(p CatalogParam) tariffdomain.CatalogService {
	return &Catalog{
		log:   p.Log.Named("tariff.catalog"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Catalog) UpsertCode(ctx context.Context, req tariffdomain.UpsertCodeRequest) (*tariffdomain.CodeResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || len(code) > 32 {
		return nil, tariffdomain.ErrInvalidCode
	}
	if req.RatePct != nil && req.RatePct.IsNegative() {
		return nil, tariffdomain.ErrInvalidRate
	}

	now := s.clock.Now()
	stored, err := s.repo.UpsertCode(ctx, &tariffdomain.TariffCode{
		ID:              s.genID.Generate(),
		Code:            code,
		Description:     trimOptional(req.Description),
		RatePct:         req.RatePct,
		HasComplexRates: req.HasComplexRates,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tariff code upserted", zap.String("code", stored.Code), zap.Bool("complex", stored.HasComplexRates))
	return toCodeResponse(stored), nil
}

func (s *Catalog) ListCodes(ctx context.Context, req tariffdomain.ListCodesRequest) ([]tariffdomain.CodeResponse, error) {
	req.Code = strings.TrimSpace(req.Code)
	items, err := s.repo.ListCodes(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := make([]tariffdomain.CodeResponse, 0, len(items))
	for i := range items {
		resp = append(resp, *toCodeResponse(&items[i]))
	}
	return resp, nil
}

// AddRateDetail stores a dated rate and flags the code as carrying complex
// rates so the resolver consults it.
func (s *Catalog) AddRateDetail(ctx context.Context, req tariffdomain.AddRateDetailRequest) (*tariffdomain.RateDetailResponse, error) {
	code, err := s.findCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if country != "" && len(country) != 2 {
		return nil, tariffdomain.ErrInvalidCountry
	}
	if req.AdValoremPct != nil && req.AdValoremPct.IsNegative() {
		return nil, tariffdomain.ErrInvalidRate
	}

	from, err := parseDate(req.EffectiveFrom)
	if err != nil {
		return nil, err
	}
	var to *time.Time
	if req.EffectiveTo != nil && strings.TrimSpace(*req.EffectiveTo) != "" {
		parsed, err := parseDate(*req.EffectiveTo)
		if err != nil {
			return nil, err
		}
		if parsed.Before(from) {
			return nil, tariffdomain.ErrInvalidEffectiveRange
		}
		to = &parsed
	}

	now := s.clock.Now()
	detail := &tariffdomain.RateDetail{
		ID:            s.genID.Generate(),
		TariffCodeID:  code.ID,
		CountryCode:   country,
		Program:       strings.ToUpper(strings.TrimSpace(req.Program)),
		AdValoremPct:  req.AdValoremPct,
		EffectiveFrom: from,
		EffectiveTo:   to,
		CreatedAt:     now,
	}
	if err := s.repo.InsertRateDetail(ctx, detail); err != nil {
		return nil, err
	}

	if !code.HasComplexRates {
		if err := s.repo.MarkComplexRates(ctx, code.ID, now); err != nil {
			return nil, err
		}
	}

	s.log.Info("tariff rate detail added",
		zap.String("code", code.Code),
		zap.String("country", detail.CountryCode),
		zap.String("program", detail.Program),
		zap.Time("effective_from", detail.EffectiveFrom),
	)
	return toRateDetailResponse(detail), nil
}

func (s *Catalog) ListRateDetails(ctx context.Context, code string) ([]tariffdomain.RateDetailResponse, error) {
	tc, err := s.findCode(ctx, code)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListRateDetails(ctx, tc.ID)
	if err != nil {
		return nil, err
	}
	resp := make([]tariffdomain.RateDetailResponse, 0, len(items))
	for i := range items {
		resp = append(resp, *toRateDetailResponse(&items[i]))
	}
	return resp, nil
}

func (s *Catalog) findCode(ctx context.Context, value string) (*tariffdomain.TariffCode, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, tariffdomain.ErrInvalidCode
	}
	code, err := s.repo.FindCodeByCode(ctx, value)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, tariffdomain.ErrCodeNotFound
	}
	return code, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, tariffdomain.ErrInvalidEffectiveDate
	}
	return t, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toCodeResponse(code *tariffdomain.TariffCode) *tariffdomain.CodeResponse {
	return &tariffdomain.CodeResponse{
		ID:              code.ID.String(),
		Code:            code.Code,
		Description:     code.Description,
		RatePct:         code.RatePct,
		HasComplexRates: code.HasComplexRates,
		UpdatedAt:       code.UpdatedAt,
	}
}

func toRateDetailResponse(detail *tariffdomain.RateDetail) *tariffdomain.RateDetailResponse {
	resp := &tariffdomain.RateDetailResponse{
		ID:            detail.ID.String(),
		TariffCodeID:  detail.TariffCodeID.String(),
		CountryCode:   detail.CountryCode,
		Program:       detail.Program,
		AdValoremPct:  detail.AdValoremPct,
		EffectiveFrom: detail.EffectiveFrom.Format(dateLayout),
	}
	if detail.EffectiveTo != nil {
		to := detail.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &to
	}
	return resp
}
