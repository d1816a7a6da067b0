package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidator builds the shared validator and registers the custom rules
func NewValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
			return models.ValidGSTIN(fl.Field().String())
		})
	})
	return validate
}

// GetValidator returns the shared validator
func GetValidator() *validator.Validate {
	return NewValidator()
}

// ValidateRequest validates req against its `validate` tags
func ValidateRequest(req interface{}) error {
	if err := GetValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FieldErrors lists the invalid fields of a validation error
func FieldErrors(err error) []models.ErrorDetail {
	var validateErrs validator.ValidationErrors
	if !ierr.As(err, &validateErrs) {
		return nil
	}
	details := make([]models.ErrorDetail, 0, len(validateErrs))
	for _, fe := range validateErrs {
		details = append(details, models.ErrorDetail{Field: fe.Field(), Issue: fe.Tag()})
	}
	return details
}
