package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"fitprove/internal/config"
	"fitprove/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "fitprove"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fitprove sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestMigrateAndPing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	for _, m := range []any{&models.Profile{}, &models.Post{}, &models.Comment{}, &models.Reaction{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestQueryLogger(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }

	tests := []struct {
		name    string
		level   logger.LogLevel
		elapsed time.Duration
		err     error
		want    string
	}{
		{"error logged", logger.Warn, 0, errors.New("boom"), "query failed"},
		{"not found ignored", logger.Warn, 0, gorm.ErrRecordNotFound, ""},
		{"slow query", logger.Warn, time.Second, nil, "slow query"},
		{"fast query quiet at warn", logger.Warn, 0, nil, ""},
		{"every query at info", logger.Info, 0, nil, "query"},
		{"silent", logger.Silent, time.Second, errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			q := NewQueryLogger(slog.New(slog.NewJSONHandler(&buf, nil)), tt.level)
			q.Trace(context.Background(), time.Now().Add(-tt.elapsed), sql, tt.err)
			if tt.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), `"msg":"`+tt.want+`"`)
			assert.Contains(t, buf.String(), "SELECT 1")
		})
	}
}

func TestQueryLogger_LogMode(t *testing.T) {
	var buf bytes.Buffer
	q := NewQueryLogger(slog.New(slog.NewTextHandler(&buf, nil)), logger.Silent)
	loud := q.LogMode(logger.Info)

	q.Info(context.Background(), "hidden %d", 1)
	assert.Empty(t, buf.String())

	loud.Info(context.Background(), "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}
