package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/landedcost/internal/clock"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/smallbiznis/landedcost/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       shipmentdomain.Repository
	TariffRepo tariffdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       shipmentdomain.Repository
	tariffRepo tariffdomain.Repository
}

func NewService(p ServiceParam) shipmentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("shipment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		tariffRepo: p.TariffRepo,
	}
}

func (s *Service) CreateContainer(ctx context.Context, req shipmentdomain.CreateContainerRequest) (*shipmentdomain.ContainerResponse, error) {
	number := strings.TrimSpace(req.ContainerNumber)
	if number == "" {
		return nil, shipmentdomain.ErrInvalidContainerNumber
	}

	now := s.clock.Now()
	container := &shipmentdomain.Container{
		ID:              s.genID.Generate(),
		ContainerNumber: number,
		Notes:           trimOptional(req.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertContainer(ctx, container); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, shipmentdomain.ErrDuplicateContainer
		}
		return nil, err
	}

	return &shipmentdomain.ContainerResponse{
		ID:              container.ID.String(),
		ContainerNumber: container.ContainerNumber,
		Notes:           container.Notes,
		CreatedAt:       container.CreatedAt,
	}, nil
}

func (s *Service) CreateInvoice(ctx context.Context, req shipmentdomain.CreateInvoiceRequest) (*shipmentdomain.InvoiceResponse, error) {
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		return nil, shipmentdomain.ErrInvalidInvoiceNumber
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, shipmentdomain.ErrInvalidCurrency
	}

	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		return nil, err
	}

	if req.ManualRatePct != nil && req.ManualRatePct.IsNegative() {
		return nil, shipmentdomain.ErrInvalidManualRate
	}

	if len(req.Lines) == 0 {
		return nil, shipmentdomain.ErrInvalidLines
	}

	var containerID *snowflake.ID
	if containerNumber := strings.TrimSpace(ptrToString(req.ContainerNumber)); containerNumber != "" {
		container, err := s.repo.FindContainerByNumber(ctx, containerNumber)
		if err != nil {
			return nil, err
		}
		if container == nil {
			return nil, shipmentdomain.ErrContainerNotFound
		}
		containerID = &container.ID
	}

	applyDBRate := true
	if req.ApplyDBRate != nil {
		applyDBRate = *req.ApplyDBRate
	}

	now := s.clock.Now()
	invoice := &shipmentdomain.Invoice{
		ID:              s.genID.Generate(),
		InvoiceNumber:   number,
		InvoiceDate:     invoiceDate,
		ContainerID:     containerID,
		PONumber:        trimOptional(req.PONumber),
		Currency:        currency,
		ApplyDBRate:     applyDBRate,
		ManualRatePct:   req.ManualRatePct,
		CountryOfOrigin: normalizeCountry(req.CountryOfOrigin),
		ClaimedProgram:  normalizeProgram(req.ClaimedProgram),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	lines := make([]shipmentdomain.InvoiceLine, 0, len(req.Lines))
	skuByCode := map[string]*shipmentdomain.SKU{}
	for _, item := range req.Lines {
		code := strings.TrimSpace(item.SKUCode)
		if code == "" {
			return nil, shipmentdomain.ErrInvalidSKUCode
		}
		if item.Quantity < 0 {
			return nil, shipmentdomain.ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return nil, shipmentdomain.ErrInvalidUnitPrice
		}
		if item.UnitVolumeCC < 0 {
			return nil, shipmentdomain.ErrInvalidVolume
		}

		sku, ok := skuByCode[code]
		if !ok {
			sku, err = s.ensureSKU(ctx, code, now)
			if err != nil {
				return nil, err
			}
			skuByCode[code] = sku
		}

		lines = append(lines, shipmentdomain.InvoiceLine{
			ID:           s.genID.Generate(),
			InvoiceID:    invoice.ID,
			SKUID:        sku.ID,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			UnitVolumeCC: item.UnitVolumeCC,
			CreatedAt:    now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
			return err
		}
		return s.repo.InsertLines(ctx, tx, lines)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("lines", len(lines)),
	)

	return toInvoiceResponse(invoice, lines), nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (*shipmentdomain.InvoiceResponse, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, shipmentdomain.ErrInvalidID
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shipmentdomain.ErrNotFound
	}

	lines, err := s.repo.ListLines(ctx, shipmentdomain.LineFilter{InvoiceID: &invoice.ID})
	if err != nil {
		return nil, err
	}

	return toInvoiceResponse(invoice, lines), nil
}

func (s *Service) UpdateInvoice(ctx context.Context, id string, req shipmentdomain.UpdateInvoiceRequest) (*shipmentdomain.InvoiceResponse, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, shipmentdomain.ErrInvalidID
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shipmentdomain.ErrNotFound
	}

	if req.InvoiceDate != nil {
		invoiceDate, err := parseDate(req.InvoiceDate)
		if err != nil {
			return nil, err
		}
		invoice.InvoiceDate = invoiceDate
	}
	if req.PONumber != nil {
		invoice.PONumber = trimOptional(req.PONumber)
	}
	if req.ApplyDBRate != nil {
		invoice.ApplyDBRate = *req.ApplyDBRate
	}
	switch {
	case req.ClearManualRate:
		invoice.ManualRatePct = nil
	case req.ManualRatePct != nil:
		if req.ManualRatePct.IsNegative() {
			return nil, shipmentdomain.ErrInvalidManualRate
		}
		invoice.ManualRatePct = req.ManualRatePct
	}
	if req.CountryOfOrigin != nil {
		invoice.CountryOfOrigin = normalizeCountry(req.CountryOfOrigin)
	}
	if req.ClaimedProgram != nil {
		invoice.ClaimedProgram = normalizeProgram(req.ClaimedProgram)
	}
	invoice.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
		return nil, err
	}

	lines, err := s.repo.ListLines(ctx, shipmentdomain.LineFilter{InvoiceID: &invoice.ID})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice updated", zap.String("invoice_id", invoice.ID.String()))
	return toInvoiceResponse(invoice, lines), nil
}

func (s *Service) UpsertSKU(ctx context.Context, req shipmentdomain.UpsertSKURequest) (*shipmentdomain.SKUResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, shipmentdomain.ErrInvalidSKUCode
	}
	if req.RateOverridePct != nil && req.RateOverridePct.IsNegative() {
		return nil, shipmentdomain.ErrInvalidRateOverride
	}

	var tariffCodeID *snowflake.ID
	if raw := strings.TrimSpace(ptrToString(req.TariffCode)); raw != "" {
		code, err := s.tariffRepo.FindCodeByCode(ctx, raw)
		if err != nil {
			return nil, err
		}
		if code == nil {
			return nil, tariffdomain.ErrCodeNotFound
		}
		tariffCodeID = &code.ID
	}

	now := s.clock.Now()
	sku, err := s.repo.UpsertSKU(ctx, &shipmentdomain.SKU{
		ID:              s.genID.Generate(),
		Code:            code,
		Description:     trimOptional(req.Description),
		TariffCodeID:    tariffCodeID,
		RateOverridePct: req.RateOverridePct,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	if sku == nil {
		return nil, shipmentdomain.ErrSKUNotFound
	}

	return &shipmentdomain.SKUResponse{
		ID:              sku.ID.String(),
		Code:            sku.Code,
		Description:     sku.Description,
		TariffCodeID:    shipmentdomain.IDString(sku.TariffCodeID),
		RateOverridePct: sku.RateOverridePct,
	}, nil
}

// ensureSKU returns the SKU with code, creating a bare one when invoice
// import references an unknown code.
func (s *Service) ensureSKU(ctx context.Context, code string, now time.Time) (*shipmentdomain.SKU, error) {
	return s.repo.UpsertSKUIfAbsent(ctx, &shipmentdomain.SKU{
		ID:        s.genID.Generate(),
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func toInvoiceResponse(invoice *shipmentdomain.Invoice, lines []shipmentdomain.InvoiceLine) *shipmentdomain.InvoiceResponse {
	resp := &shipmentdomain.InvoiceResponse{
		ID:              invoice.ID.String(),
		InvoiceNumber:   invoice.InvoiceNumber,
		ContainerID:     shipmentdomain.IDString(invoice.ContainerID),
		PONumber:        invoice.PONumber,
		Currency:        invoice.Currency,
		ApplyDBRate:     invoice.ApplyDBRate,
		ManualRatePct:   invoice.ManualRatePct,
		CountryOfOrigin: invoice.CountryOfOrigin,
		ClaimedProgram:  invoice.ClaimedProgram,
		VendorTotal:     decimal.Zero,
		Lines:           make([]shipmentdomain.LineResponse, 0, len(lines)),
		CreatedAt:       invoice.CreatedAt,
	}
	if invoice.InvoiceDate != nil {
		formatted := invoice.InvoiceDate.Format(dateLayout)
		resp.InvoiceDate = &formatted
	}
	for _, line := range lines {
		total := line.VendorTotal()
		resp.VendorTotal = resp.VendorTotal.Add(total)
		resp.Lines = append(resp.Lines, shipmentdomain.LineResponse{
			ID:           line.ID.String(),
			SKUID:        line.SKUID.String(),
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			UnitVolumeCC: line.UnitVolumeCC,
			VendorTotal:  total,
		})
	}
	return resp
}

// parseDate accepts YYYY-MM-DD and normalizes to midnight UTC so date
// comparisons in SQL stay exact.
func parseDate(raw *string) (*time.Time, error) {
	value := strings.TrimSpace(ptrToString(raw))
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return nil, shipmentdomain.ErrInvalidInvoiceDate
	}
	return &parsed, nil
}

func normalizeCountry(raw *string) *string {
	value := strings.ToUpper(strings.TrimSpace(ptrToString(raw)))
	if value == "" {
		return nil
	}
	return &value
}

func normalizeProgram(raw *string) *string {
	value := strings.ToUpper(strings.TrimSpace(ptrToString(raw)))
	if value == "" {
		return nil
	}
	return &value
}

func trimOptional(raw *string) *string {
	value := strings.TrimSpace(ptrToString(raw))
	if value == "" {
		return nil
	}
	return &value
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
