package domain

import (
	"context"
	"time"
)

type Service interface {
	// RecalculateAll reallocates every user pool, then recomputes the duty
	// pools of every invoice. It stops at the first failure.
	RecalculateAll(ctx context.Context) (*Summary, error)
}

type Summary struct {
	PoolsReallocated  int           `json:"pools_reallocated"`
	InvoicesProcessed int           `json:"invoices_processed"`
	Duration          time.Duration `json:"duration"`
}
