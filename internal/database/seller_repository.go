package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// SellerRepository persists seller profiles
type SellerRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewSellerRepository creates a new repository
func NewSellerRepository(db *DB, logger *logrus.Logger) *SellerRepository {
	return &SellerRepository{
		db:     db,
		logger: logger,
	}
}

// GetByPhone returns the seller registered with phone
func (r *SellerRepository) GetByPhone(ctx context.Context, phone string) (*models.Seller, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT phone, business_name, address, gstin, language, onboarding_step,
			accountant_email, created_at, updated_at
		FROM sellers
		WHERE phone = $1
	`
	var (
		seller   models.Seller
		language string
		step     string
	)
	err := r.db.QueryRowContext(ctx, query, phone).Scan(
		&seller.Phone, &seller.BusinessName, &seller.Address, &seller.GSTIN,
		&language, &step, &seller.AccountantEmail, &seller.CreatedAt, &seller.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("seller not found: %s", phone).Mark(ierr.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying seller: %w", err)
	}
	seller.Language = models.Language(language)
	seller.OnboardingStep = models.OnboardingStep(step)
	return &seller, nil
}

// Save inserts or updates the seller
func (r *SellerRepository) Save(ctx context.Context, seller *models.Seller) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = now
	}
	seller.UpdatedAt = now

	query := `
		INSERT INTO sellers (
			phone, business_name, address, gstin, language, onboarding_step,
			accountant_email, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (phone) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			address = EXCLUDED.address,
			gstin = EXCLUDED.gstin,
			language = EXCLUDED.language,
			onboarding_step = EXCLUDED.onboarding_step,
			accountant_email = EXCLUDED.accountant_email,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		seller.Phone, seller.BusinessName, seller.Address, seller.GSTIN,
		string(seller.Language), string(seller.OnboardingStep), seller.AccountantEmail,
		seller.CreatedAt, seller.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving seller: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"seller": seller.Phone,
		"step":   seller.OnboardingStep,
	}).Debug("Seller saved")
	return nil
}
