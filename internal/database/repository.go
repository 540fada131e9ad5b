package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/market"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// clampLimit maps a requested page size into [1, maxListLimit]
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

// ============================================================================
// TRADE CANDIDATES
// ============================================================================

const tradeColumns = `id, symbol, direction, modality, interval, entry_price, leverage, investment_amount,
	tp1, tp2, tp3, stop_loss, signal_strength, sentiment, risk_reward, atr, caution, reasoning, created_at`

// SaveTradeCandidate inserts a generated trade
func (r *Repository) SaveTradeCandidate(ctx context.Context, t autopilot.TradeCandidate) error {
	query := `
		INSERT INTO trade_candidates (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		t.ID, t.Symbol, string(t.Direction), string(t.Modality), t.Interval, t.EntryPrice, t.Leverage,
		t.InvestmentAmount, t.TP1, t.TP2, t.TP3, t.StopLoss, t.SignalStrength, string(t.Sentiment),
		t.RiskReward, t.ATR, t.Caution, t.Reasoning, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade candidate %s: %w", t.ID, err)
	}
	return nil
}

// GetTradeCandidate retrieves a trade by ID
func (r *Repository) GetTradeCandidate(ctx context.Context, id string) (*autopilot.TradeCandidate, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_candidates WHERE id = $1`
	t, err := scanTrade(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("trade candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trade candidate %s: %w", id, err)
	}
	return t, nil
}

// ListTradeCandidates returns the most recent trades, newest first
func (r *Repository) ListTradeCandidates(ctx context.Context, limit int) ([]autopilot.TradeCandidate, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_candidates ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list trade candidates: %w", err)
	}
	defer rows.Close()

	trades := []autopilot.TradeCandidate{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade candidate: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (*autopilot.TradeCandidate, error) {
	var (
		t                              autopilot.TradeCandidate
		direction, modality, sentiment string
	)
	err := row.Scan(
		&t.ID, &t.Symbol, &direction, &modality, &t.Interval, &t.EntryPrice, &t.Leverage,
		&t.InvestmentAmount, &t.TP1, &t.TP2, &t.TP3, &t.StopLoss, &t.SignalStrength, &sentiment,
		&t.RiskReward, &t.ATR, &t.Caution, &t.Reasoning, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = market.Side(direction)
	t.Modality = autopilot.Modality(modality)
	t.Sentiment = market.Trend(sentiment)
	return &t, nil
}

// ============================================================================
// REVERSAL SIGNALS
// ============================================================================

// SaveReversalSignal inserts a reversal evaluation
func (r *Repository) SaveReversalSignal(ctx context.Context, s autopilot.ReversalSignal) error {
	signals, err := json.Marshal(s.Signals)
	if err != nil {
		return fmt.Errorf("marshal reversal signals: %w", err)
	}
	query := `
		INSERT INTO reversal_signals (id, symbol, side, modality, detected, confidence, action, suggested_sl,
			signals, policy, current_price, pnl_percent, reason, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		s.ID, s.Symbol, string(s.Side), string(s.Modality), s.DetectedReversal, s.Confidence,
		string(s.RecommendedAction), s.SuggestedNewSL, signals, string(s.Policy), s.CurrentPrice,
		s.PnLPercent, s.Reason, s.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reversal signal %s: %w", s.ID, err)
	}
	return nil
}

// ListReversalSignals returns recent evaluations for a symbol, newest first.
// An empty symbol lists all symbols.
func (r *Repository) ListReversalSignals(ctx context.Context, symbol string, limit int) ([]autopilot.ReversalSignal, error) {
	query := `
		SELECT id, symbol, side, modality, detected, confidence, action, suggested_sl,
		       signals, policy, current_price, pnl_percent, reason, evaluated_at
		FROM reversal_signals
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY evaluated_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list reversal signals: %w", err)
	}
	defer rows.Close()

	out := []autopilot.ReversalSignal{}
	for rows.Next() {
		var (
			s                           autopilot.ReversalSignal
			side, modality, action, pol string
			signals                     []byte
		)
		if err := rows.Scan(
			&s.ID, &s.Symbol, &side, &modality, &s.DetectedReversal, &s.Confidence, &action,
			&s.SuggestedNewSL, &signals, &pol, &s.CurrentPrice, &s.PnLPercent, &s.Reason, &s.EvaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reversal signal: %w", err)
		}
		if err := json.Unmarshal(signals, &s.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal reversal signals: %w", err)
		}
		s.Side = market.Side(side)
		s.Modality = autopilot.Modality(modality)
		s.RecommendedAction = autopilot.ReversalAction(action)
		s.Policy = autopilot.ScoringPolicy(pol)
		out = append(out, s)
	}
	return out, rows.Err()
}
