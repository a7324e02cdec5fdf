package domain

import "context"

type Service interface {
	LineCosts(ctx context.Context, filter Filter) ([]LineCost, error)
	SKUCosts(ctx context.Context, filter Filter) ([]SKUCost, error)
}
