package database

import (
	"context"
	"strings"

	"github.com/irfndi/astro-snapshot-go/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracedDB wraps a DatabasePool and records a span per statement.
type TracedDB struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedDB creates a new traced database connection
func NewTracedDB(pool DatabasePool) *TracedDB {
	return &TracedDB{
		pool:   pool,
		tracer: telemetry.GetTracer(telemetry.ServiceName + "/database"),
	}
}

func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "Query", sql)
	defer span.End()

	rows, err := db.pool.Query(ctx, sql, args...)
	telemetry.RecordError(span, err)
	return rows, err
}

// QueryRow errors surface on Scan, so the span only covers dispatch.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "QueryRow", sql)
	defer span.End()

	return db.pool.QueryRow(ctx, sql, args...)
}

func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "Exec", sql)
	defer span.End()

	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return tag, err
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	return tag, nil
}

func (db *TracedDB) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, db.tracer, "db."+op,
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", statementVerb(sql)),
		attribute.String("db.statement", strings.TrimSpace(sql)),
	)
}

func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
