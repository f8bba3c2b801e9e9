// Package ledger implements the fund transfer port on PostgreSQL
// account balances. Each transfer debits and credits inside one
// transaction and appends a journal row.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "github.com/freelanceshield/claims-engine/internal/domain/errors"
	"github.com/freelanceshield/claims-engine/internal/domain/values"
	"github.com/freelanceshield/claims-engine/internal/service/claims"
)

// PostgresLedger moves funds between accounts held in the ledger_accounts
// table.
type PostgresLedger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a ledger on the given pool.
func NewPostgresLedger(db *pgxpool.Pool, logger *zap.Logger) (*PostgresLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresLedger{db: db, logger: logger}, nil
}

// Transfer debits from and credits to atomically. The debit row is
// locked first; a balance below the transfer amount aborts the
// transaction with ErrInsufficientFunds.
func (l *PostgresLedger) Transfer(ctx context.Context, from, to uuid.UUID, amount values.Money) error {
	return l.TransferBatch(ctx, []claims.TransferLeg{{From: from, To: to, Amount: amount}})
}

// TransferBatch applies every leg inside a single transaction. A failure
// on any leg rolls back the whole batch, so a multi-way split can be
// retried without double-charging the earlier legs.
func (l *PostgresLedger) TransferBatch(ctx context.Context, legs []claims.TransferLeg) error {
	if len(legs) == 0 {
		return nil
	}
	for _, leg := range legs {
		if !leg.Amount.IsPositive() {
			return apperrors.ErrInvalidAmount
		}
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("beginning transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, leg := range legs {
		if err := l.applyLeg(ctx, tx, leg); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transfer: %w", err)
	}

	for _, leg := range legs {
		l.logger.Debug("ledger transfer",
			zap.String("from", leg.From.String()),
			zap.String("to", leg.To.String()),
			zap.String("amount", leg.Amount.String()),
		)
	}
	return nil
}

func (l *PostgresLedger) applyLeg(ctx context.Context, tx pgx.Tx, leg claims.TransferLeg) error {
	var balanceStr, currency string
	err := tx.QueryRow(ctx,
		`SELECT balance::text, currency FROM ledger_accounts WHERE id = $1 FOR UPDATE`,
		leg.From,
	).Scan(&balanceStr, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("ledger account")
		}
		return fmt.Errorf("locking source account: %w", err)
	}

	balance, err := values.NewMoneyFromString(balanceStr, currency)
	if err != nil {
		return fmt.Errorf("parsing account balance: %w", err)
	}
	if balance.LessThan(leg.Amount) {
		return apperrors.ErrInsufficientFunds.WithDetails(map[string]interface{}{
			"account":   leg.From.String(),
			"balance":   balance.String(),
			"requested": leg.Amount.String(),
		})
	}

	if _, err := tx.Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance - $2, updated_at = NOW() WHERE id = $1`,
		leg.From, leg.Amount.Amount().String(),
	); err != nil {
		return fmt.Errorf("debiting source account: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE ledger_accounts SET balance = balance + $2, updated_at = NOW() WHERE id = $1`,
		leg.To, leg.Amount.Amount().String(),
	)
	if err != nil {
		return fmt.Errorf("crediting destination account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ledger account")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_transfers (id, from_account, to_account, amount, currency, transferred_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), leg.From, leg.To, leg.Amount.Amount().String(), leg.Amount.Currency(),
	); err != nil {
		return fmt.Errorf("recording transfer: %w", err)
	}
	return nil
}
