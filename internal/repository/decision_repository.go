package repository

import (
	"context"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createDecisionsTable = `
CREATE TABLE IF NOT EXISTS decisions (
    id            BIGSERIAL   PRIMARY KEY,
    symbol        TEXT        NOT NULL,
    signal_type   TEXT        NOT NULL,
    confidence    NUMERIC     NOT NULL,
    position_size NUMERIC     NOT NULL,
    reasoning     TEXT        NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_decisions_symbol_time
    ON decisions (symbol, created_at DESC);
`

// DecisionRepository is the append-only log of emitted signals.
type DecisionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewDecisionRepository(pool PgxPool, tracer trace.Tracer) *DecisionRepository {
	return &DecisionRepository{pool: pool, tracer: tracer}
}

func (r *DecisionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "decision-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createDecisionsTable)
	return err
}

func (r *DecisionRepository) Append(ctx context.Context, sig domain.TradingSignal) error {
	_, span := r.tracer.Start(ctx, "decision-repo.append")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO decisions (symbol, signal_type, confidence, position_size, reasoning, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sig.Symbol, string(sig.Type), sig.Confidence, sig.PositionSize, sig.Reasoning, sig.GeneratedAt,
	)
	return err
}

// Recent returns the latest decisions for a symbol, oldest-first.
func (r *DecisionRepository) Recent(ctx context.Context, symbol string, limit int) ([]domain.Decision, error) {
	_, span := r.tracer.Start(ctx, "decision-repo.recent")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, signal_type, confidence, position_size, reasoning, created_at
		 FROM decisions
		 WHERE symbol = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []domain.Decision
	for rows.Next() {
		var d domain.Decision
		var sigType string
		var ts time.Time
		if err := rows.Scan(&d.ID, &d.Symbol, &sigType, &d.Confidence, &d.PositionSize, &d.Reasoning, &ts); err != nil {
			return nil, err
		}
		d.Type = domain.SignalType(sigType)
		d.CreatedAt = ts.UTC()
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: DB returns newest-first, callers render oldest-first.
	for i, j := 0, len(decisions)-1; i < j; i, j = i+1, j-1 {
		decisions[i], decisions[j] = decisions[j], decisions[i]
	}

	return decisions, nil
}
