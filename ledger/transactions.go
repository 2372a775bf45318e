package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/goExpense/internal/ids"
)

const transactionColumns = `t_id, owner_id, category_id, amount_cents, description, occurred_at, created_by, created_at, COALESCE(updated_by, ''), updated_at`

var transactionsTable = tableSpec{
	name: "transactions",
	key:  "t_id",
	columns: map[string]colKind{
		"t_id":         kindText,
		"category_id":  kindText,
		"amount_cents": kindInt,
		"description":  kindText,
		"occurred_at":  kindTime,
		"created_by":   kindText,
		"created_at":   kindTime,
		"updated_by":   kindText,
		"updated_at":   kindTime,
	},
	selects: transactionColumns,
}

// Transactions is the PostgreSQL repository for expense transactions.
type Transactions struct {
	db  querier
	now func() time.Time
}

func NewTransactions(db querier) *Transactions {
	return &Transactions{db: db, now: time.Now}
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.CategoryID,
		&t.AmountCents,
		&t.Description,
		&t.OccurredAt,
		&t.Meta.CreatedBy,
		&t.Meta.CreatedAt,
		&t.Meta.UpdatedBy,
		&t.Meta.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create records a transaction. The category must exist and belong to ownerID; the insert
// selects from categories so both checks happen in one statement.
func (r *Transactions) Create(ctx context.Context, ownerID string, in TransactionInput) (*Transaction, error) {
	const op = "ledger.Transactions.Create"

	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount_cents must be positive", ErrInvalidInput)
	}
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if !ids.ValidULID(in.CategoryID) {
		return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
	}

	now := r.now().UTC()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = now
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := `INSERT INTO transactions (t_id, owner_id, category_id, amount_cents, description, occurred_at, created_by, created_at)
	SELECT $1, $2, c.category_id, $4, $5, $6, $2, $7
	FROM categories c
	WHERE c.category_id = $3 AND c.owner_id = $2
	RETURNING ` + transactionColumns

	t, err := scanTransaction(r.db.QueryRow(ctx, q,
		id, ownerID, in.CategoryID, in.AmountCents, strings.TrimSpace(in.Description), in.OccurredAt.UTC(), now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Fetch lists the owner's transactions matching f.
func (r *Transactions) Fetch(ctx context.Context, ownerID string, f Filters) ([]Transaction, error) {
	const op = "ledger.Transactions.Fetch"

	q, args, err := buildFetch(transactionsTable, ownerID, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
