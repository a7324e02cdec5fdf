package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single comparison to the WHERE clause. Unknown
// operators are ignored.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		switch cond.Operator {
		case EQ, NEQ, GT, GTE, LT, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", field), cond.Value)
		default:
			return db
		}
	})
}

// QuerySortBy describes a caller-requested ordering restricted to an allow list.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
	// Default is used when SortBy is empty or not allowed.
	Default string
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		SortBy:  strings.TrimSpace(sortBy),
		OrderBy: strings.TrimSpace(orderBy),
		Allow:   allow,
	}
}

// WithSortBy orders by the requested column, always tie-breaking on id so
// results are deterministic.
func WithSortBy(q QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := q.SortBy
		if column == "" || !q.Allow[column] {
			column = q.Default
		}
		if column == "" {
			return db.Order("id ASC")
		}

		direction := "ASC"
		if strings.EqualFold(q.OrderBy, "desc") {
			direction = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", column, direction))
		if column != "id" {
			db = db.Order("id ASC")
		}
		return db
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
