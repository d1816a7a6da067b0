package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/ledger"
	"github.com/tallbag/gutinvoice/internal/models"
)

const invoiceColumns = `
	id, seller_phone, invoice_number, sequence, document_type, period_month, period_year,
	invoice_date, status, customer_name, customer_address, customer_gstin, place_of_supply,
	reverse_charge, items, taxable_value, cgst_rate, cgst_amount, sgst_rate, sgst_amount,
	igst_rate, igst_amount, total_amount, declaration, payment_terms, original_invoice_number,
	original_invoice_date, reason, pdf_url, created_at, cancelled_at`

const nextSequenceQuery = `
	INSERT INTO invoice_counters (seller_phone, kind, period_year, period_month, last_value)
	VALUES ($1, $2, $3, $4, (
		SELECT COUNT(*) + 1 FROM invoices
		WHERE seller_phone = $1 AND period_year = $3 AND period_month = $4
		AND (document_type = 'CREDIT NOTE') = $5
	))
	ON CONFLICT (seller_phone, kind, period_year, period_month)
	DO UPDATE SET last_value = invoice_counters.last_value + 1, updated_at = NOW()
	RETURNING last_value`

// InvoiceRepository is the PostgreSQL ledger store
type InvoiceRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewInvoiceRepository creates a new repository
func NewInvoiceRepository(db *DB, logger *logrus.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

var _ ledger.Store = (*InvoiceRepository)(nil)

// IssueInvoice allocates the next sequence and inserts rec in one
// transaction. A failed full insert is retried with the core columns.
func (r *InvoiceRepository) IssueInvoice(ctx context.Context, key ledger.SequenceKey, rec *models.InvoiceRecord, number ledger.NumberFunc) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		seq, err := r.nextSequence(ctx, tx, key)
		if err != nil {
			return err
		}
		rec.Sequence = seq
		rec.InvoiceNumber = number(seq)

		if _, err := tx.ExecContext(ctx, "SAVEPOINT full_insert"); err != nil {
			return fmt.Errorf("error creating savepoint: %w", err)
		}
		fullErr := insertFull(ctx, tx, rec)
		if fullErr == nil {
			return nil
		}

		r.logger.WithFields(logrus.Fields{
			"invoice_number": rec.InvoiceNumber,
			"error":          fullErr.Error(),
		}).Warn("Full invoice insert failed, retrying with core fields")

		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT full_insert"); err != nil {
			return fmt.Errorf("error rolling back to savepoint: %w", err)
		}
		if err := insertCore(ctx, tx, rec); err != nil {
			return fmt.Errorf("error inserting invoice: %w (full insert: %v)", err, fullErr)
		}
		return nil
	})
	if err != nil {
		rec.Sequence = 0
		rec.InvoiceNumber = ""
	}
	return err
}

func (r *InvoiceRepository) nextSequence(ctx context.Context, tx *sql.Tx, key ledger.SequenceKey) (int, error) {
	var seq int
	err := tx.QueryRowContext(ctx, nextSequenceQuery,
		key.SellerPhone, string(key.Kind), key.Period.Year, key.Period.Month,
		key.Kind == ledger.SequenceCreditNote,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("error incrementing %s counter: %w", key.Kind, err)
	}
	return seq, nil
}

func insertFull(ctx context.Context, tx *sql.Tx, rec *models.InvoiceRecord) error {
	items, err := json.Marshal(nonNilItems(rec.Items))
	if err != nil {
		return fmt.Errorf("error encoding items: %w", err)
	}

	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31
	)`
	_, err = tx.ExecContext(ctx, query,
		rec.ID, rec.SellerPhone, rec.InvoiceNumber, rec.Sequence, string(rec.DocumentType),
		rec.PeriodMonth, rec.PeriodYear, rec.InvoiceDate, string(rec.Status),
		rec.CustomerName, rec.CustomerAddress, rec.CustomerGSTIN, rec.PlaceOfSupply,
		rec.ReverseCharge, items, rec.TaxableValue, rec.CGSTRate, rec.CGSTAmount,
		rec.SGSTRate, rec.SGSTAmount, rec.IGSTRate, rec.IGSTAmount, rec.TotalAmount,
		rec.Declaration, rec.PaymentTerms, rec.OriginalInvoiceNumber,
		rec.OriginalInvoiceDate, rec.Reason, rec.PDFURL, rec.CreatedAt, rec.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting invoice: %w", err)
	}
	return nil
}

// insertCore writes only the columns the ledger and report depend on
func insertCore(ctx context.Context, tx *sql.Tx, rec *models.InvoiceRecord) error {
	query := `
		INSERT INTO invoices (
			id, seller_phone, invoice_number, sequence, document_type, period_month,
			period_year, invoice_date, status, customer_name, taxable_value, cgst_amount,
			sgst_amount, igst_amount, total_amount, original_invoice_number, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := tx.ExecContext(ctx, query,
		rec.ID, rec.SellerPhone, rec.InvoiceNumber, rec.Sequence, string(rec.DocumentType),
		rec.PeriodMonth, rec.PeriodYear, rec.InvoiceDate, string(rec.Status),
		rec.CustomerName, rec.TaxableValue, rec.CGSTAmount, rec.SGSTAmount,
		rec.IGSTAmount, rec.TotalAmount, rec.OriginalInvoiceNumber, rec.CreatedAt,
	)
	return err
}

// SetPDFURL stores the public document link of a record
func (r *InvoiceRepository) SetPDFURL(ctx context.Context, id uuid.UUID, url string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE invoices SET pdf_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("error updating pdf url: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("invoice not found: %s", id)
	}
	return nil
}

// FindByFragment returns the seller's records whose number contains fragment.
// Rows are ranked the way ledger.Resolve picks a match (cancellable first,
// then exact, then suffix, then newest) so the cap never hides the winner.
func (r *InvoiceRepository) FindByFragment(ctx context.Context, sellerPhone, fragment string) ([]*models.InvoiceRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	fragment = strings.ToUpper(fragment)
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE seller_phone = $1 AND UPPER(invoice_number) LIKE '%' || $2 || '%' ESCAPE '\'
		ORDER BY (status = 'active' AND document_type <> 'CREDIT NOTE') DESC,
			UPPER(invoice_number) = $3 DESC,
			UPPER(invoice_number) LIKE '%' || $2 ESCAPE '\' DESC,
			created_at DESC
		LIMIT 100`
	rows, err := r.db.QueryContext(ctx, query, sellerPhone, escapeLike(fragment), fragment)
	if err != nil {
		return nil, fmt.Errorf("error querying invoices: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// VoidWithCreditNote cancels the invoice if still active and inserts its
// credit note in the same transaction
func (r *InvoiceRepository) VoidWithCreditNote(ctx context.Context, originalID uuid.UUID, cn *models.InvoiceRecord, key ledger.SequenceKey) (bool, error) {
	voided := false
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		cancelledAt := cn.CreatedAt
		if cancelledAt.IsZero() {
			cancelledAt = time.Now()
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE invoices SET status = 'cancelled', cancelled_at = $2 WHERE id = $1 AND status = 'active'`,
			originalID, cancelledAt,
		)
		if err != nil {
			return fmt.Errorf("error voiding invoice: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil
		}

		seq, err := r.nextSequence(ctx, tx, key)
		if err != nil {
			return err
		}
		cn.Sequence = seq
		if err := insertFull(ctx, tx, cn); err != nil {
			return err
		}
		voided = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return voided, nil
}

// ListByPeriod returns every record of the seller period, oldest first
func (r *InvoiceRepository) ListByPeriod(ctx context.Context, sellerPhone string, period ledger.Period) ([]*models.InvoiceRecord, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE seller_phone = $1 AND period_year = $2 AND period_month = $3
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, sellerPhone, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("error querying invoices: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*models.InvoiceRecord, error) {
	var out []*models.InvoiceRecord
	for rows.Next() {
		var (
			rec         models.InvoiceRecord
			docType     string
			status      string
			items       []byte
			cancelledAt sql.NullTime
		)
		err := rows.Scan(
			&rec.ID, &rec.SellerPhone, &rec.InvoiceNumber, &rec.Sequence, &docType,
			&rec.PeriodMonth, &rec.PeriodYear, &rec.InvoiceDate, &status,
			&rec.CustomerName, &rec.CustomerAddress, &rec.CustomerGSTIN, &rec.PlaceOfSupply,
			&rec.ReverseCharge, &items, &rec.TaxableValue, &rec.CGSTRate, &rec.CGSTAmount,
			&rec.SGSTRate, &rec.SGSTAmount, &rec.IGSTRate, &rec.IGSTAmount, &rec.TotalAmount,
			&rec.Declaration, &rec.PaymentTerms, &rec.OriginalInvoiceNumber,
			&rec.OriginalInvoiceDate, &rec.Reason, &rec.PDFURL, &rec.CreatedAt, &cancelledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice: %w", err)
		}
		rec.DocumentType = models.DocumentType(docType)
		rec.Status = models.InvoiceStatus(status)
		if len(items) > 0 {
			if err := json.Unmarshal(items, &rec.Items); err != nil {
				return nil, fmt.Errorf("error decoding items of %s: %w", rec.InvoiceNumber, err)
			}
		}
		if cancelledAt.Valid {
			t := cancelledAt.Time
			rec.CancelledAt = &t
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	return out, nil
}

func nonNilItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return []models.LineItem{}
	}
	return items
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
