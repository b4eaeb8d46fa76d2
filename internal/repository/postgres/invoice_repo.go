package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

type invoiceRow struct {
	ID              uuid.UUID                `db:"id"`
	UserID          string                   `db:"user_id"`
	JobID           *uuid.UUID               `db:"job_id"`
	Seq             int                      `db:"seq"`
	InvoiceNumber   string                   `db:"invoice_number"`
	SupplierName    string                   `db:"supplier_name"`
	SoldToAddress   string                   `db:"sold_to_address"`
	OrderDate       string                   `db:"order_date"`
	ShipDate        string                   `db:"ship_date"`
	ShippingAddress string                   `db:"shipping_address"`
	Total           float64                  `db:"total"`
	Items           jsonb[[]domain.LineItem] `db:"items"`
	Attributes      jsonb[map[string]any]    `db:"attributes"`
	CreatedAt       time.Time                `db:"created_at"`
}

func newInvoiceRow(userID string, jobID *uuid.UUID, seq int, inv domain.Invoice, now time.Time) invoiceRow {
	items := inv.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return invoiceRow{
		ID:              uuid.New(),
		UserID:          userID,
		JobID:           jobID,
		Seq:             seq,
		InvoiceNumber:   inv.InvoiceNumber,
		SupplierName:    inv.SupplierName,
		SoldToAddress:   inv.SoldToAddress,
		OrderDate:       inv.OrderDate,
		ShipDate:        inv.ShipDate,
		ShippingAddress: inv.ShippingAddress,
		Total:           inv.Total,
		Items:           jsonb[[]domain.LineItem]{V: items},
		Attributes:      jsonb[map[string]any]{V: inv.Attributes},
		CreatedAt:       now,
	}
}

func (r invoiceRow) stored() domain.StoredInvoice {
	items := r.Items.V
	if items == nil {
		items = []domain.LineItem{}
	}
	return domain.StoredInvoice{
		ID:     r.ID,
		UserID: r.UserID,
		JobID:  r.JobID,
		Invoice: domain.Invoice{
			InvoiceNumber:   r.InvoiceNumber,
			SupplierName:    r.SupplierName,
			SoldToAddress:   r.SoldToAddress,
			OrderDate:       r.OrderDate,
			ShipDate:        r.ShipDate,
			ShippingAddress: r.ShippingAddress,
			Total:           r.Total,
			Items:           items,
			Attributes:      r.Attributes.V,
		},
		CreatedAt: r.CreatedAt,
	}
}

func storedInvoices(rows []invoiceRow) []domain.StoredInvoice {
	out := make([]domain.StoredInvoice, len(rows))
	for i := range rows {
		out[i] = rows[i].stored()
	}
	return out
}

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

const insertInvoiceQuery = `INSERT INTO invoices (
	id, user_id, job_id, seq,
	invoice_number, supplier_name, sold_to_address, order_date, ship_date, shipping_address,
	total, items, attributes, created_at
) VALUES (
	:id, :user_id, :job_id, :seq,
	:invoice_number, :supplier_name, :sold_to_address, :order_date, :ship_date, :shipping_address,
	:total, :items, :attributes, :created_at
)`

func (r *invoiceRepo) CreateBatch(ctx context.Context, userID string, jobID *uuid.UUID, invoices []domain.Invoice) ([]domain.StoredInvoice, error) {
	if len(invoices) == 0 {
		return []domain.StoredInvoice{}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.CreateBatch begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	rows := make([]invoiceRow, len(invoices))
	for i, inv := range invoices {
		rows[i] = newInvoiceRow(userID, jobID, i, inv, now)
		if _, err := tx.NamedExecContext(ctx, insertInvoiceQuery, rows[i]); err != nil {
			return nil, fmt.Errorf("invoiceRepo.CreateBatch insert %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("invoiceRepo.CreateBatch commit: %w", err)
	}
	return storedInvoices(rows), nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.StoredInvoice, error) {
	var row invoiceRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM invoices WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	inv := row.stored()
	return &inv, nil
}

func (r *invoiceRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.StoredInvoice, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM invoices WHERE user_id = $1", userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByUser count: %w", err)
	}

	var rows []invoiceRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM invoices WHERE user_id = $1
		 ORDER BY created_at DESC, seq ASC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByUser: %w", err)
	}
	return storedInvoices(rows), total, nil
}

func (r *invoiceRepo) ListAllByUser(ctx context.Context, userID string) ([]domain.StoredInvoice, error) {
	var rows []invoiceRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM invoices WHERE user_id = $1 ORDER BY created_at ASC, seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListAllByUser: %w", err)
	}
	return storedInvoices(rows), nil
}
