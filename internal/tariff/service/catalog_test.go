package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/landedcost/internal/config"
	"github.com/smallbiznis/landedcost/internal/dbtest"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_UpsertCode(t *testing.T) {
	f := newFixture(t, config.DefaultTariffPolicy())
	desc := "Portable computers"

	created, err := f.catalog.UpsertCode(context.Background(), tariffdomain.UpsertCodeRequest{
		Code:        " 8471.30.0100 ",
		Description: &desc,
		RatePct:     dbtest.Pct("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, "8471.30.0100", created.Code)

	updated, err := f.catalog.UpsertCode(context.Background(), tariffdomain.UpsertCodeRequest{
		Code:    "8471.30.0100",
		RatePct: dbtest.Pct("2.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	require.NotNil(t, updated.RatePct)
	assert.Equal(t, "2.5", updated.RatePct.String())

	codes, err := f.catalog.ListCodes(context.Background(), tariffdomain.ListCodesRequest{})
	require.NoError(t, err)
	assert.Len(t, codes, 1)

	_, err = f.catalog.UpsertCode(context.Background(), tariffdomain.UpsertCodeRequest{Code: ""})
	assert.ErrorIs(t, err, tariffdomain.ErrInvalidCode)
	_, err = f.catalog.UpsertCode(context.Background(), tariffdomain.UpsertCodeRequest{Code: "1", RatePct: dbtest.Pct("-1")})
	assert.ErrorIs(t, err, tariffdomain.ErrInvalidRate)
}

func TestCatalog_AddRateDetail(t *testing.T) {
	f := newFixture(t, config.DefaultTariffPolicy())
	_, err := f.catalog.UpsertCode(context.Background(), tariffdomain.UpsertCodeRequest{Code: "6109.10", RatePct: dbtest.Pct("16.5")})
	require.NoError(t, err)

	to := "2024-12-31"
	detail, err := f.catalog.AddRateDetail(context.Background(), tariffdomain.AddRateDetailRequest{
		Code:          "6109.10",
		CountryCode:   "cn",
		Program:       "s",
		AdValoremPct:  dbtest.Pct("25"),
		EffectiveFrom: "2024-01-01",
		EffectiveTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, "CN", detail.CountryCode)
	assert.Equal(t, "S", detail.Program)
	assert.Equal(t, "2024-01-01", detail.EffectiveFrom)
	require.NotNil(t, detail.EffectiveTo)
	assert.Equal(t, to, *detail.EffectiveTo)

	code, err := f.repo.FindCodeByCode(context.Background(), "6109.10")
	require.NoError(t, err)
	assert.True(t, code.HasComplexRates)

	details, err := f.catalog.ListRateDetails(context.Background(), "6109.10")
	require.NoError(t, err)
	assert.Len(t, details, 1)

	bad := "2023-01-01"
	cases := []struct {
		name string
		req  tariffdomain.AddRateDetailRequest
		want error
	}{
		{"unknown code", tariffdomain.AddRateDetailRequest{Code: "0000", EffectiveFrom: "2024-01-01"}, tariffdomain.ErrCodeNotFound},
		{"bad country", tariffdomain.AddRateDetailRequest{Code: "6109.10", CountryCode: "CHN", EffectiveFrom: "2024-01-01"}, tariffdomain.ErrInvalidCountry},
		{"bad date", tariffdomain.AddRateDetailRequest{Code: "6109.10", EffectiveFrom: "01/01/2024"}, tariffdomain.ErrInvalidEffectiveDate},
		{"reversed range", tariffdomain.AddRateDetailRequest{Code: "6109.10", EffectiveFrom: "2024-01-01", EffectiveTo: &bad}, tariffdomain.ErrInvalidEffectiveRange},
		{"negative rate", tariffdomain.AddRateDetailRequest{Code: "6109.10", EffectiveFrom: "2024-01-01", AdValoremPct: dbtest.Pct("-2")}, tariffdomain.ErrInvalidRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.catalog.AddRateDetail(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
