package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int       `db:"id"`
	Login        string    `db:"login"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Role         Role      `db:"role"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type Order struct {
	ID            int             `db:"id"`
	UserID        int             `db:"user_id"`
	Status        OrderStatus     `db:"status"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Notes         string          `db:"notes"`
	LastActorID   *int            `db:"last_actor_id"`
	LastActorRole Role            `db:"last_actor_role"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type OrderItem struct {
	ID         int             `db:"id"`
	OrderID    int             `db:"order_id"`
	ProductRef string          `db:"product_ref"`
	Quantity   int             `db:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
	LineTotal  decimal.Decimal `db:"line_total"`
}

type Invoice struct {
	ID            int             `db:"id"`
	UserID        int             `db:"user_id"`
	OrderID       *int            `db:"order_id"`
	Number        string          `db:"invoice_number"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	DueDate       time.Time       `db:"due_date"`
	Status        InvoiceStatus   `db:"status"`
	PaidAt        *time.Time      `db:"paid_at"`
	PaymentMethod PaymentMethod   `db:"payment_method"`
	TransferRef   string          `db:"transfer_ref"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type Payment struct {
	ID          int             `db:"id"`
	InvoiceID   int             `db:"invoice_id"`
	Amount      decimal.Decimal `db:"amount"`
	Method      PaymentMethod   `db:"method"`
	Status      PaymentStatus   `db:"status"`
	TransferRef string          `db:"transfer_ref"`
	PaidAt      *time.Time      `db:"paid_at"`
	SettledAt   *time.Time      `db:"settled_at"`
	CreatedAt   time.Time       `db:"created_at"`
}

// ExternalCustomer mirrors an identity held by the bank gateway. Receiver
// rows belong to the platform and carry no user.
type ExternalCustomer struct {
	ID         int          `db:"id"`
	Kind       CustomerKind `db:"kind"`
	UserID     *int         `db:"user_id"`
	ExternalID string       `db:"external_id"`
	Email      string       `db:"email"`
	Status     string       `db:"status"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

type FundingSource struct {
	ID         int       `db:"id"`
	CustomerID int       `db:"customer_id"`
	AccountRef string    `db:"account_ref"`
	ExternalID string    `db:"external_id"`
	Name       string    `db:"name"`
	Mask       string    `db:"mask"`
	Verified   bool      `db:"verified"`
	Removed    bool      `db:"removed"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Usable reports whether the funding source may originate a transfer.
func (f *FundingSource) Usable() bool {
	return f.Verified && !f.Removed
}

type AuditLogEntry struct {
	ID         int64           `db:"id"`
	ActorID    *int            `db:"actor_id"`
	ActorRole  Role            `db:"actor_role"`
	Action     AuditAction     `db:"action"`
	EntityType EntityType      `db:"entity_type"`
	EntityID   int             `db:"entity_id"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
}
