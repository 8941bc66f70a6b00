package repository

import (
	"context"
	"testing"
	"time"

	"fitprove/internal/gateway"
	"fitprove/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestGateway(t *testing.T) (gateway.Gateway, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return gateway.NewGormGateway(db, gateway.Options{Timeout: 2 * time.Second, RetryInterval: time.Millisecond}), db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// gatewayStub delegates to a real gateway unless a hook overrides the call.
type gatewayStub struct {
	next     gateway.Gateway
	selectFn func(ctx context.Context, table string, q gateway.Query, dest any) error
	insertFn func(ctx context.Context, table string, row gateway.Row) error
	deleteFn func(ctx context.Context, table string, filters ...gateway.Filter) (int64, error)
}

func (s *gatewayStub) Select(ctx context.Context, table string, q gateway.Query, dest any) error {
	if s.selectFn != nil {
		return s.selectFn(ctx, table, q, dest)
	}
	return s.next.Select(ctx, table, q, dest)
}

func (s *gatewayStub) Insert(ctx context.Context, table string, row gateway.Row) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, table, row)
	}
	return s.next.Insert(ctx, table, row)
}

func (s *gatewayStub) Update(ctx context.Context, table string, patch gateway.Row, filters ...gateway.Filter) (int64, error) {
	return s.next.Update(ctx, table, patch, filters...)
}

func (s *gatewayStub) Delete(ctx context.Context, table string, filters ...gateway.Filter) (int64, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, table, filters...)
	}
	return s.next.Delete(ctx, table, filters...)
}
