package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	"github.com/smallbiznis/landedcost/internal/allocation/engine"
	"github.com/smallbiznis/landedcost/internal/clock"
	"github.com/smallbiznis/landedcost/internal/lock"
	"github.com/smallbiznis/landedcost/internal/observability/metrics"
	"github.com/smallbiznis/landedcost/internal/observability/tracing"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	"github.com/smallbiznis/landedcost/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockKeyPrefix = "cost_pool:"

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         allocationdomain.Repository
	ShipmentRepo shipmentdomain.Repository
	Locker       lock.Locker
	Metrics      *metrics.AllocationMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         allocationdomain.Repository
	shipmentRepo shipmentdomain.Repository
	locker       lock.Locker
	metrics      *metrics.AllocationMetrics
}

func NewService(p ServiceParam) allocationdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("allocation.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		shipmentRepo: p.ShipmentRepo,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreatePool(ctx context.Context, req allocationdomain.CreatePoolRequest) (*allocationdomain.PoolResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, allocationdomain.ErrInvalidName
	}
	kind, err := allocationdomain.ParsePoolKind(req.Kind)
	if err != nil {
		return nil, err
	}
	method, err := allocationdomain.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	scopeType, err := allocationdomain.ParseScopeType(req.Scope)
	if err != nil {
		return nil, err
	}

	invoiceID, err := parseOptionalID(req.InvoiceID)
	if err != nil {
		return nil, err
	}
	containerID, err := parseOptionalID(req.ContainerID)
	if err != nil {
		return nil, err
	}
	scope, err := allocationdomain.NewScope(scopeType, invoiceID, containerID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureScopeTarget(ctx, scope); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	pool := &allocationdomain.CostPool{
		ID:          s.genID.Generate(),
		Name:        name,
		Kind:        kind,
		Method:      method.Code(),
		AmountTotal: req.AmountTotal.RoundBank(2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	pool.SetScope(scope)

	release, err := s.acquire(ctx, lockKey(pool))
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.allocateAndSave(ctx, pool, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, pool)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cost pool created",
		zap.String("pool_id", pool.ID.String()),
		zap.String("kind", string(pool.Kind)),
		zap.String("scope", string(pool.ScopeType)),
		zap.String("method", string(pool.Method)),
		zap.String("amount_total", pool.AmountTotal.String()),
		zap.Int("lines", len(result.Shares)),
	)

	return toPoolResponse(pool, len(result.Shares)), nil
}

func (s *Service) UpdatePool(ctx context.Context, id string, req allocationdomain.UpdatePoolRequest) (*allocationdomain.PoolResponse, error) {
	poolID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, s.db, poolID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, allocationdomain.ErrNotFound
	}
	if current.AutoCompute {
		return nil, allocationdomain.ErrSystemPoolReadOnly
	}

	release, err := s.acquire(ctx, lockKey(current))
	if err != nil {
		return nil, err
	}
	defer release()

	// reload under the lock
	pool, err := s.repo.FindByID(ctx, s.db, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, allocationdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, allocationdomain.ErrInvalidName
		}
		pool.Name = name
	}
	if req.Method != nil {
		method, err := allocationdomain.ParseMethod(*req.Method)
		if err != nil {
			return nil, err
		}
		pool.Method = method.Code()
	}
	if req.AmountTotal != nil {
		pool.AmountTotal = req.AmountTotal.RoundBank(2)
	}
	pool.UpdatedAt = s.clock.Now()

	result, err := s.allocateAndSave(ctx, pool, func(tx *gorm.DB) error {
		return s.repo.Update(ctx, tx, pool)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cost pool updated",
		zap.String("pool_id", pool.ID.String()),
		zap.String("method", string(pool.Method)),
		zap.String("amount_total", pool.AmountTotal.String()),
	)

	return toPoolResponse(pool, len(result.Shares)), nil
}

func (s *Service) DeletePool(ctx context.Context, id string) error {
	poolID, err := parseID(id)
	if err != nil {
		return err
	}

	pool, err := s.repo.FindByID(ctx, s.db, poolID)
	if err != nil {
		return err
	}
	if pool == nil {
		return allocationdomain.ErrNotFound
	}

	release, err := s.acquire(ctx, lockKey(pool))
	if err != nil {
		return err
	}
	defer release()

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, pool.ID)
	}); err != nil {
		return err
	}

	s.log.Info("cost pool deleted", zap.String("pool_id", pool.ID.String()), zap.String("kind", string(pool.Kind)))
	return nil
}

func (s *Service) GetPool(ctx context.Context, id string) (*allocationdomain.PoolResponse, error) {
	poolID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	pool, err := s.repo.FindByID(ctx, s.db, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, allocationdomain.ErrNotFound
	}

	allocations, err := s.repo.ListAllocations(ctx, s.db, pool.ID)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(pool, len(allocations)), nil
}

func (s *Service) ListPools(ctx context.Context, req allocationdomain.ListPoolsRequest) ([]allocationdomain.PoolResponse, error) {
	filter := allocationdomain.ListPoolFilter{
		SortBy:  req.SortBy,
		OrderBy: req.OrderBy,
	}

	if kind := strings.ToLower(strings.TrimSpace(req.Kind)); kind != "" {
		switch k := allocationdomain.PoolKind(kind); k {
		case allocationdomain.PoolKindCustom, allocationdomain.PoolKindFreight,
			allocationdomain.PoolKindTariff, allocationdomain.PoolKindSurtax:
			filter.Kind = &k
		default:
			return nil, allocationdomain.ErrInvalidKind
		}
	}
	if strings.TrimSpace(req.InvoiceID) != "" {
		id, err := parseID(req.InvoiceID)
		if err != nil {
			return nil, err
		}
		filter.InvoiceID = &id
	}
	if strings.TrimSpace(req.ContainerID) != "" {
		id, err := parseID(req.ContainerID)
		if err != nil {
			return nil, err
		}
		filter.ContainerID = &id
	}

	return s.listPools(ctx, filter)
}

func (s *Service) ListUserPools(ctx context.Context) ([]allocationdomain.PoolResponse, error) {
	auto := false
	return s.listPools(ctx, allocationdomain.ListPoolFilter{AutoCompute: &auto})
}

func (s *Service) listPools(ctx context.Context, filter allocationdomain.ListPoolFilter) ([]allocationdomain.PoolResponse, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]allocationdomain.PoolResponse, 0, len(items))
	for i := range items {
		resp = append(resp, *toPoolResponse(&items[i], 0))
	}
	return resp, nil
}

func (s *Service) ListAllocations(ctx context.Context, poolID string) ([]allocationdomain.AllocationResponse, error) {
	id, err := parseID(poolID)
	if err != nil {
		return nil, err
	}
	pool, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, allocationdomain.ErrNotFound
	}

	items, err := s.repo.ListAllocations(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	resp := make([]allocationdomain.AllocationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, allocationdomain.AllocationResponse{
			ID:            item.ID.String(),
			CostPoolID:    item.CostPoolID.String(),
			InvoiceLineID: item.InvoiceLineID.String(),
			Amount:        item.Amount,
		})
	}
	return resp, nil
}

func (s *Service) Allocate(ctx context.Context, poolID string) (*allocationdomain.PoolResponse, error) {
	id, err := parseID(poolID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, allocationdomain.ErrNotFound
	}

	release, err := s.acquire(ctx, lockKey(current))
	if err != nil {
		return nil, err
	}
	defer release()

	pool, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, allocationdomain.ErrNotFound
	}

	result, err := s.allocateAndSave(ctx, pool, nil)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(pool, len(result.Shares)), nil
}

func (s *Service) UpsertSystemPool(ctx context.Context, req allocationdomain.SystemPoolRequest) (*allocationdomain.PoolResponse, error) {
	if !req.Kind.IsSystem() {
		return nil, allocationdomain.ErrInvalidKind
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.shipmentRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, allocationdomain.ErrInvoiceNotFound
	}

	key := allocationdomain.SystemKey(req.Kind, invoiceID)
	release, err := s.acquire(ctx, lockKeyPrefix+key)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := s.upsertSystemPool(ctx, req, invoiceID, key)
	if db.IsDuplicateKeyErr(err) {
		// another writer inserted the pool first; update it instead
		resp, err = s.upsertSystemPool(ctx, req, invoiceID, key)
	}
	return resp, err
}

func (s *Service) upsertSystemPool(ctx context.Context, req allocationdomain.SystemPoolRequest, invoiceID snowflake.ID, key string) (*allocationdomain.PoolResponse, error) {
	existing, err := s.repo.FindBySystemKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	amount := req.Amount.RoundBank(2)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = string(req.Kind)
	}

	pool := existing
	write := func(tx *gorm.DB) error { return s.repo.Update(ctx, tx, pool) }
	if pool == nil {
		systemKey := key
		pool = &allocationdomain.CostPool{
			ID:          s.genID.Generate(),
			Kind:        req.Kind,
			Method:      allocationdomain.MethodByPrice,
			AutoCompute: true,
			SystemKey:   &systemKey,
			CreatedAt:   now,
		}
		pool.SetScope(allocationdomain.PerInvoice{InvoiceID: invoiceID})
		write = func(tx *gorm.DB) error { return s.repo.Insert(ctx, tx, pool) }
	}
	pool.Name = name
	pool.AmountTotal = amount
	pool.UpdatedAt = now

	result, err := s.allocateAndSave(ctx, pool, write)
	if err != nil {
		return nil, err
	}

	s.log.Info("system pool computed",
		zap.String("pool_id", pool.ID.String()),
		zap.String("kind", string(pool.Kind)),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("amount_total", amount.String()),
		zap.Bool("created", existing == nil),
	)

	return toPoolResponse(pool, len(result.Shares)), nil
}

func (s *Service) FindSystemPool(ctx context.Context, kind allocationdomain.PoolKind, invoiceID string) (*allocationdomain.PoolResponse, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, err
	}
	pool, err := s.repo.FindBySystemKey(ctx, s.db, allocationdomain.SystemKey(kind, id))
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, allocationdomain.ErrNotFound
	}
	allocations, err := s.repo.ListAllocations(ctx, s.db, pool.ID)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(pool, len(allocations)), nil
}

func (s *Service) RemoveSystemPool(ctx context.Context, kind allocationdomain.PoolKind, invoiceID string) (bool, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return false, err
	}

	key := allocationdomain.SystemKey(kind, id)
	release, err := s.acquire(ctx, lockKeyPrefix+key)
	if err != nil {
		return false, err
	}
	defer release()

	pool, err := s.repo.FindBySystemKey(ctx, s.db, key)
	if err != nil {
		return false, err
	}
	if pool == nil {
		return false, nil
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, pool.ID)
	}); err != nil {
		return false, err
	}

	s.log.Info("system pool removed",
		zap.String("pool_id", pool.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("invoice_id", invoiceID),
	)
	return true, nil
}

// allocateAndSave computes the shares of pool and, in one transaction, runs
// write (when set) and replaces the pool allocations. The caller must hold
// the pool lock.
func (s *Service) allocateAndSave(ctx context.Context, pool *allocationdomain.CostPool, write func(tx *gorm.DB) error) (result engine.Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "allocation.allocate",
		attribute.String("pool.id", pool.ID.String()),
		attribute.String("pool.kind", string(pool.Kind)),
		attribute.String("pool.method", string(pool.Method)),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			s.metrics.IncAllocationError(string(pool.Kind), err)
		}
		tracing.EndSpan(span, err)
	}()

	method, err := allocationdomain.MethodFor(pool.Method)
	if err != nil {
		return engine.Result{}, err
	}
	scope, err := pool.Scope()
	if err != nil {
		return engine.Result{}, err
	}
	lines, err := s.linesFor(ctx, scope)
	if err != nil {
		return engine.Result{}, err
	}

	result = engine.Allocate(pool.AmountTotal, method, lines)

	now := s.clock.Now()
	items := make([]allocationdomain.Allocation, 0, len(result.Shares))
	for _, share := range result.Shares {
		items = append(items, allocationdomain.Allocation{
			ID:            s.genID.Generate(),
			CostPoolID:    pool.ID,
			InvoiceLineID: share.LineID,
			Amount:        share.Amount,
			CreatedAt:     now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if write != nil {
			if err := write(tx); err != nil {
				return err
			}
		}
		return s.repo.ReplaceAllocations(ctx, tx, pool.ID, items)
	})
	if err != nil {
		return engine.Result{}, err
	}

	span.SetAttributes(attribute.Int("allocation.lines", len(items)))
	s.metrics.ObserveAllocation(string(pool.Kind), string(pool.Method), result.PennyAdjusted(), time.Since(start))

	if result.PennyAdjusted() {
		s.log.Debug("rounding remainder applied",
			zap.String("pool_id", pool.ID.String()),
			zap.String("adjustment", result.PennyAdjustment.String()),
		)
	}
	return result, nil
}

func (s *Service) linesFor(ctx context.Context, scope allocationdomain.Scope) ([]shipmentdomain.InvoiceLine, error) {
	filter := shipmentdomain.LineFilter{}
	switch sc := scope.(type) {
	case allocationdomain.PerInvoice:
		id := sc.InvoiceID
		filter.InvoiceID = &id
	case allocationdomain.PerContainer:
		id := sc.ContainerID
		filter.ContainerID = &id
	case allocationdomain.Global:
	}
	return s.shipmentRepo.ListLines(ctx, filter)
}

func (s *Service) ensureScopeTarget(ctx context.Context, scope allocationdomain.Scope) error {
	switch sc := scope.(type) {
	case allocationdomain.PerInvoice:
		invoice, err := s.shipmentRepo.FindInvoiceByID(ctx, sc.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return allocationdomain.ErrInvoiceNotFound
		}
	case allocationdomain.PerContainer:
		container, err := s.shipmentRepo.FindContainerByID(ctx, sc.ContainerID)
		if err != nil {
			return err
		}
		if container == nil {
			return allocationdomain.ErrContainerNotFound
		}
	}
	return nil
}

func (s *Service) acquire(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		s.log.Warn("cost pool lock not acquired", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return release, nil
}

// lockKey serializes automatic pools on their system key so that writers
// which only know the invoice contend on the same lock.
func lockKey(pool *allocationdomain.CostPool) string {
	if pool.SystemKey != nil && *pool.SystemKey != "" {
		return lockKeyPrefix + *pool.SystemKey
	}
	return lockKeyPrefix + pool.ID.String()
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, allocationdomain.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(value *string) (*snowflake.ID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, err := parseID(*value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func toPoolResponse(pool *allocationdomain.CostPool, allocated int) *allocationdomain.PoolResponse {
	return &allocationdomain.PoolResponse{
		ID:          pool.ID.String(),
		Name:        pool.Name,
		Kind:        pool.Kind,
		Scope:       pool.ScopeType,
		Method:      pool.Method,
		AmountTotal: pool.AmountTotal,
		InvoiceID:   shipmentdomain.IDString(pool.InvoiceID),
		ContainerID: shipmentdomain.IDString(pool.ContainerID),
		AutoCompute: pool.AutoCompute,
		Allocated:   allocated,
		CreatedAt:   pool.CreatedAt,
		UpdatedAt:   pool.UpdatedAt,
	}
}
