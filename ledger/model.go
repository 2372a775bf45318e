package ledger

import "time"

// Meta records who created and last updated a row.
type Meta struct {
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Category struct {
	ID          string `json:"category_id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"category_name"`
	Description string `json:"description"`
	Meta        Meta   `json:"meta"`
}

// Transaction amounts are stored in minor units (cents).
type Transaction struct {
	ID          string    `json:"t_id"`
	OwnerID     string    `json:"owner_id"`
	CategoryID  string    `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	Meta        Meta      `json:"meta"`
}

type CategoryInput struct {
	Name        string `json:"category_name"`
	Description string `json:"description"`
}

type TransactionInput struct {
	CategoryID  string    `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}
