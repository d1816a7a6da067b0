package models

import (
	"regexp"
	"strings"
	"time"
)

// Language is the seller's preferred voice language
type Language string

const (
	LanguageEnglish Language = "en-IN"
	LanguageTelugu  Language = "te-IN"
	LanguageHindi   Language = "hi-IN"
)

// OnboardingStep is the position of a seller in the registration dialogue
type OnboardingStep string

const (
	OnboardingLanguage     OnboardingStep = "language"
	OnboardingBusinessName OnboardingStep = "business_name"
	OnboardingAddress      OnboardingStep = "address"
	OnboardingGSTIN        OnboardingStep = "gstin"
	OnboardingComplete     OnboardingStep = "complete"
)

var onboardingTransitions = map[OnboardingStep]OnboardingStep{
	OnboardingLanguage:     OnboardingBusinessName,
	OnboardingBusinessName: OnboardingAddress,
	OnboardingAddress:      OnboardingGSTIN,
	OnboardingGSTIN:        OnboardingComplete,
}

// Next returns the step that follows s. Complete is terminal.
func (s OnboardingStep) Next() OnboardingStep {
	if next, ok := onboardingTransitions[s]; ok {
		return next
	}
	return OnboardingComplete
}

// Valid reports whether s is a known step
func (s OnboardingStep) Valid() bool {
	_, ok := onboardingTransitions[s]
	return ok || s == OnboardingComplete
}

// Default seller profile used when the seller store cannot be read
const (
	DefaultBusinessName = "My Business"
	DefaultAddress      = "Hyderabad, Telangana"
)

var gstinPattern = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// ValidGSTIN reports whether gstin has the 15 character GSTIN shape
func ValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(gstin)))
}

// Seller is a registered business identified by its WhatsApp number
type Seller struct {
	Phone           string         `json:"phone" db:"phone"`
	BusinessName    string         `json:"business_name" db:"business_name"`
	Address         string         `json:"address" db:"address"`
	GSTIN           string         `json:"gstin,omitempty" db:"gstin"`
	Language        Language       `json:"language" db:"language"`
	OnboardingStep  OnboardingStep `json:"onboarding_step" db:"onboarding_step"`
	AccountantEmail string         `json:"accountant_email,omitempty" db:"accountant_email"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// NewSeller creates a seller at the first onboarding step
func NewSeller(phone string, now time.Time) *Seller {
	return &Seller{
		Phone:          phone,
		Language:       LanguageEnglish,
		OnboardingStep: OnboardingLanguage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// DefaultSeller is the profile used when the seller store is unavailable
func DefaultSeller(phone string) *Seller {
	return &Seller{
		Phone:          phone,
		BusinessName:   DefaultBusinessName,
		Address:        DefaultAddress,
		Language:       LanguageEnglish,
		OnboardingStep: OnboardingComplete,
	}
}

// Onboarded reports whether the seller finished registration
func (s *Seller) Onboarded() bool {
	return s.OnboardingStep == OnboardingComplete
}

// GSTRegistered reports whether the seller has a GSTIN
func (s *Seller) GSTRegistered() bool {
	return strings.TrimSpace(s.GSTIN) != ""
}

// StorageKey returns the phone number stripped of the transport prefix,
// used for object storage paths
func (s *Seller) StorageKey() string {
	return CleanPhone(s.Phone)
}

// CleanPhone strips the WhatsApp prefix, plus signs and spaces
func CleanPhone(phone string) string {
	cleaned := strings.ReplaceAll(phone, "whatsapp:", "")
	cleaned = strings.ReplaceAll(cleaned, "+", "")
	return strings.ReplaceAll(cleaned, " ", "")
}
