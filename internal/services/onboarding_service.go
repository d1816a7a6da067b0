package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

const maxProfileField = 120

const (
	msgWelcome = "🎙️ *Welcome to GutInvoice, Every Invoice has a voice!*\n\n" +
		"Let's set up your business in 4 quick steps."
	msgLanguagePrompt = "🗣️ *Choose your voice note language:*\n\n" +
		"1️⃣ English\n2️⃣ Telugu (తెలుగు)\n3️⃣ Hindi (हिंदी)\n\nReply with 1, 2 or 3."
	msgBusinessNamePrompt = "🏪 What is your *business name*?"
	msgAddressPrompt      = "📍 What is your *business address*? (City, State)"
	msgGSTINPrompt        = "🧾 What is your *GSTIN*?\n\nReply *skip* if you are not GST registered."
	msgInvalidGSTIN       = "❌ That GSTIN does not look right. It has 15 characters, e.g. 36ABCDE1234F1Z5.\n\nReply with your GSTIN or *skip*."
	msgEmptyAnswer        = "Please reply with some text."
)

var languageChoices = map[string]models.Language{
	"1": models.LanguageEnglish, "english": models.LanguageEnglish, "en": models.LanguageEnglish,
	"2": models.LanguageTelugu, "telugu": models.LanguageTelugu, "te": models.LanguageTelugu,
	"3": models.LanguageHindi, "hindi": models.LanguageHindi, "hi": models.LanguageHindi,
}

var languageNames = map[models.Language]string{
	models.LanguageEnglish: "English",
	models.LanguageTelugu:  "Telugu",
	models.LanguageHindi:   "Hindi",
}

// ParseLanguage maps a menu reply to a language
func ParseLanguage(answer string) (models.Language, bool) {
	lang, ok := languageChoices[strings.ToLower(strings.TrimSpace(answer))]
	return lang, ok
}

// LanguageName returns the display name of a language
func LanguageName(lang models.Language) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return string(lang)
}

// OnboardingService walks new sellers through registration
type OnboardingService struct {
	sellers SellerStore
	logger  *logrus.Logger
	now     func() time.Time
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(sellers SellerStore, logger *logrus.Logger) *OnboardingService {
	return &OnboardingService{
		sellers: sellers,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers a first-contact seller and returns the opening prompt
func (s *OnboardingService) Start(ctx context.Context, phone string) (*models.Seller, string, error) {
	seller := models.NewSeller(phone, s.now())
	if err := s.sellers.Save(ctx, seller); err != nil {
		return nil, "", ierr.WithError(err).
			WithHint("❌ Could not start registration. Please try again.").
			Mark(ierr.ErrPersistence)
	}

	s.logger.WithField("seller", phone).Info("Seller onboarding started")
	return seller, msgWelcome + "\n\n" + msgLanguagePrompt, nil
}

// Advance applies answer to the seller's current step and returns the
// next prompt. Invalid answers keep the seller on the same step.
func (s *OnboardingService) Advance(ctx context.Context, seller *models.Seller, answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	step := seller.OnboardingStep
	if !step.Valid() {
		step = models.OnboardingLanguage
	}

	var reply string
	switch step {
	case models.OnboardingLanguage:
		lang, ok := ParseLanguage(answer)
		if !ok {
			return msgLanguagePrompt, nil
		}
		seller.Language = lang
		reply = fmt.Sprintf("✅ Language set to *%s*.\n\n%s", LanguageName(lang), msgBusinessNamePrompt)

	case models.OnboardingBusinessName:
		if answer == "" {
			return msgEmptyAnswer + "\n\n" + msgBusinessNamePrompt, nil
		}
		seller.BusinessName = ierr.Truncate(answer, maxProfileField)
		reply = msgAddressPrompt

	case models.OnboardingAddress:
		if answer == "" {
			return msgEmptyAnswer + "\n\n" + msgAddressPrompt, nil
		}
		seller.Address = ierr.Truncate(answer, maxProfileField)
		reply = msgGSTINPrompt

	case models.OnboardingGSTIN:
		switch {
		case isSkip(answer):
			seller.GSTIN = ""
		case models.ValidGSTIN(answer):
			seller.GSTIN = strings.ToUpper(answer)
		default:
			return msgInvalidGSTIN, nil
		}
		reply = completionMessage(seller)

	default:
		return helpMessage(seller), nil
	}

	seller.OnboardingStep = step.Next()
	if err := s.sellers.Save(ctx, seller); err != nil {
		seller.OnboardingStep = step
		return "", ierr.WithError(err).
			WithHint("❌ Could not save your answer. Please send it again.").
			Mark(ierr.ErrPersistence)
	}

	s.logger.WithFields(logrus.Fields{
		"seller": seller.Phone,
		"from":   step,
		"to":     seller.OnboardingStep,
	}).Info("Seller onboarding advanced")
	return reply, nil
}

func isSkip(answer string) bool {
	switch strings.ToLower(answer) {
	case "skip", "no", "none", "na", "n/a":
		return true
	}
	return false
}

func completionMessage(seller *models.Seller) string {
	kind := "Tax Invoices (GST registered)"
	if !seller.GSTRegistered() {
		kind = "Invoices (not GST registered)"
	}
	return fmt.Sprintf("🎉 *You're all set, %s!*\n\nYou will issue %s.\n\n%s",
		seller.BusinessName, kind, helpMessage(seller))
}
