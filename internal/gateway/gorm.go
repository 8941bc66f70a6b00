package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fitprove/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"
)

const (
	// DefaultTimeout bounds every gateway call when no timeout is configured.
	DefaultTimeout = 10 * time.Second
)

// Options tunes a GormGateway.
type Options struct {
	Timeout     time.Duration
	ReadRetries int
	// RetryInterval is the first backoff delay between read attempts.
	RetryInterval time.Duration
}

// GormGateway implements Gateway on a GORM connection.
type GormGateway struct {
	db            *gorm.DB
	timeout       time.Duration
	readRetries   int
	retryInterval time.Duration
}

// NewGormGateway wraps db. A zero Timeout or RetryInterval falls back to
// the default; zero ReadRetries means reads run once.
func NewGormGateway(db *gorm.DB, opts Options) *GormGateway {
	g := &GormGateway{
		db:            db,
		timeout:       opts.Timeout,
		readRetries:   opts.ReadRetries,
		retryInterval: opts.RetryInterval,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.readRetries < 0 {
		g.readRetries = 0
	}
	if g.retryInterval <= 0 {
		g.retryInterval = 50 * time.Millisecond
	}
	return g
}

func (g *GormGateway) Select(ctx context.Context, table string, q Query, dest any) error {
	span, ctx := observability.StartGatewaySpan(ctx, "select", table)
	defer span.End()
	defer observability.TrackGateway("select", table)()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retryInterval
	b.MaxInterval = time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		tx, err := g.buildSelect(g.db.WithContext(callCtx), table, q)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		err = classify(expired(callCtx, tx.Find(dest).Error))
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(g.readRetries+1)))

	return g.finish(ctx, span, "select", table, classify(err))
}

func (g *GormGateway) Insert(ctx context.Context, table string, row Row) error {
	span, ctx := observability.StartGatewaySpan(ctx, "insert", table)
	defer span.End()
	defer observability.TrackGateway("insert", table)()

	if len(row) == 0 {
		return g.finish(ctx, span, "insert", table, errors.New("gateway: empty insert"))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.db.WithContext(callCtx).Table(table).Create(map[string]any(row)).Error
	return g.finish(ctx, span, "insert", table, classify(expired(callCtx, err)))
}

func (g *GormGateway) Update(ctx context.Context, table string, patch Row, filters ...Filter) (int64, error) {
	span, ctx := observability.StartGatewaySpan(ctx, "update", table)
	defer span.End()
	defer observability.TrackGateway("update", table)()

	cond, args, err := whereClause(filters)
	if err == nil && cond == "" {
		err = errors.New("gateway: update without filters")
	}
	if err == nil && len(patch) == 0 {
		err = errors.New("gateway: empty patch")
	}
	if err != nil {
		return 0, g.finish(ctx, span, "update", table, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res := g.db.WithContext(callCtx).Table(table).Where(cond, args...).Updates(map[string]any(patch))
	if res.Error != nil {
		return 0, g.finish(ctx, span, "update", table, classify(expired(callCtx, res.Error)))
	}
	return res.RowsAffected, nil
}

func (g *GormGateway) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	span, ctx := observability.StartGatewaySpan(ctx, "delete", table)
	defer span.End()
	defer observability.TrackGateway("delete", table)()

	cond, args, err := whereClause(filters)
	if err == nil && cond == "" {
		err = errors.New("gateway: delete without filters")
	}
	if err != nil {
		return 0, g.finish(ctx, span, "delete", table, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res := g.db.WithContext(callCtx).Exec("DELETE FROM "+table+" WHERE "+cond, args...)
	if res.Error != nil {
		return 0, g.finish(ctx, span, "delete", table, classify(expired(callCtx, res.Error)))
	}
	return res.RowsAffected, nil
}

func (g *GormGateway) buildSelect(tx *gorm.DB, table string, q Query) (*gorm.DB, error) {
	tx = tx.Table(table)

	qualify := func(col string) string { return col }
	if q.Join != nil {
		qualify = func(col string) string {
			if strings.ContainsAny(col, ".( ") || col == "*" {
				return col
			}
			return table + "." + col
		}
	}

	selects := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		selects = append(selects, qualify(c))
	}
	if j := q.Join; j != nil {
		if len(selects) == 0 {
			selects = append(selects, table+".*")
		}
		for _, c := range j.Columns {
			selects = append(selects, fmt.Sprintf("%s.%s AS %s%s", j.Table, c, j.Prefix, c))
		}
		tx = tx.Joins(fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s", j.Table, j.Table, j.ForeignColumn, table, j.LocalColumn))
	}
	if len(selects) > 0 {
		tx = tx.Select(strings.Join(selects, ", "))
	}

	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		f.Column = qualify(f.Column)
		filters[i] = f
	}
	cond, args, err := whereClause(filters)
	if err != nil {
		return nil, err
	}
	if cond != "" {
		tx = tx.Where(cond, args...)
	}
	if len(q.GroupBy) > 0 {
		tx = tx.Group(strings.Join(q.GroupBy, ", "))
	}
	for _, o := range q.Order {
		col := qualify(o.Column)
		if o.Desc {
			col += " DESC"
		}
		tx = tx.Order(col)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx, nil
}

func (g *GormGateway) finish(ctx context.Context, span *observability.Span, operation, table string, err error) error {
	if err == nil {
		return nil
	}
	span.SetError(err)
	observability.GatewayErrors.WithLabelValues(operation, table, kindOf(err)).Inc()
	if !errors.Is(err, ErrNotFound) {
		observability.Logger.WarnContext(ctx, "gateway call failed",
			slog.String("operation", operation),
			slog.String("table", table),
			slog.String("kind", kindOf(err)),
			slog.String("error", err.Error()),
		)
	}
	return err
}
