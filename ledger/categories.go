package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/goExpense/internal/ids"
)

const maxNameLen = 128

const categoryColumns = `category_id, owner_id, category_name, description, created_by, created_at, COALESCE(updated_by, ''), updated_at`

var categoriesTable = tableSpec{
	name: "categories",
	key:  "category_id",
	columns: map[string]colKind{
		"category_id":   kindText,
		"category_name": kindText,
		"description":   kindText,
		"created_by":    kindText,
		"created_at":    kindTime,
		"updated_by":    kindText,
		"updated_at":    kindTime,
	},
	selects: categoryColumns,
}

// Categories is the PostgreSQL repository for expense categories.
type Categories struct {
	db  querier
	now func() time.Time
}

func NewCategories(db querier) *Categories {
	return &Categories{db: db, now: time.Now}
}

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&c.Meta.CreatedBy,
		&c.Meta.CreatedAt,
		&c.Meta.UpdatedBy,
		&c.Meta.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func normalizeCategory(in CategoryInput) (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: category_name must be 1 to %d characters", ErrInvalidInput, maxNameLen)
	}
	return in, nil
}

// Create inserts a category for ownerID. Names are unique per owner.
func (r *Categories) Create(ctx context.Context, ownerID string, in CategoryInput) (*Category, error) {
	const op = "ledger.Categories.Create"

	in, err := normalizeCategory(in)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := `INSERT INTO categories (category_id, owner_id, category_name, description, created_by, created_at)
	VALUES ($1, $2, $3, $4, $2, $5)
	RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, q, id, ownerID, in.Name, in.Description, now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Update replaces name and description. created_* is preserved and updated_* is stamped.
func (r *Categories) Update(ctx context.Context, ownerID, categoryID string, in CategoryInput) (*Category, error) {
	const op = "ledger.Categories.Update"

	in, err := normalizeCategory(in)
	if err != nil {
		return nil, err
	}
	if !ids.ValidULID(categoryID) {
		return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
	}

	q := `UPDATE categories
	SET category_name = $3, description = $4, updated_by = $2, updated_at = $5
	WHERE category_id = $1 AND owner_id = $2
	RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRow(ctx, q, categoryID, ownerID, in.Name, in.Description, r.now().UTC()))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Fetch lists the owner's categories matching f.
func (r *Categories) Fetch(ctx context.Context, ownerID string, f Filters) ([]Category, error) {
	const op = "ledger.Categories.Fetch"

	q, args, err := buildFetch(categoriesTable, ownerID, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
