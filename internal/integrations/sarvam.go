package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/httpclient"
	"github.com/tallbag/gutinvoice/internal/models"
)

// targetLanguage is the language transcripts are translated into
const targetLanguage = "en-IN"

// SarvamClient transcribes voice notes with the speech-to-text-translate API
type SarvamClient struct {
	http   *httpclient.Client
	cfg    config.SarvamConfig
	logger *logrus.Logger
}

// NewSarvamClient creates a new transcription client
func NewSarvamClient(cfg config.SarvamConfig, logger *logrus.Logger) *SarvamClient {
	return &SarvamClient{
		http: httpclient.New(httpclient.ClientConfig{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger),
		cfg:    cfg,
		logger: logger,
	}
}

type sarvamResponse struct {
	Transcript     string `json:"transcript"`
	TranslatedText string `json:"translated_text"`
	LanguageCode   string `json:"language_code"`
}

// Transcribe returns the English transcript of an audio recording spoken
// in language. An empty language uses the configured source language.
func (c *SarvamClient) Transcribe(ctx context.Context, audio []byte, language models.Language) (string, error) {
	source := string(language)
	if source == "" {
		source = c.cfg.SourceLanguage
	}

	body, contentType, err := c.multipartBody(audio, source)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("❌ Could not read your voice note. Please send it again.").
			Mark(ierr.ErrTranscription)
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.cfg.URL,
		Headers: map[string]string{
			"API-Subscription-Key": c.cfg.APIKey,
			"Content-Type":         contentType,
		},
		Body: body,
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"language": source,
			"size":     len(audio),
			"error":    err.Error(),
		}).Error("Transcription request failed")
		return "", ierr.WithError(err).
			WithMessage("sarvam transcription").
			WithHint("❌ Could not understand the voice note. Please try again.").
			Mark(ierr.ErrTranscription)
	}

	var parsed sarvamResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", ierr.WithError(err).
			WithMessage("error decoding sarvam response").
			WithHint("❌ Could not understand the voice note. Please try again.").
			Mark(ierr.ErrTranscription)
	}

	transcript := strings.TrimSpace(parsed.Transcript)
	if transcript == "" {
		transcript = strings.TrimSpace(parsed.TranslatedText)
	}
	if transcript == "" {
		return "", ierr.NewError("empty transcript from Sarvam").
			WithHint("❌ The voice note was empty or unclear. Please record it again.").
			Mark(ierr.ErrTranscription)
	}

	c.logger.WithFields(logrus.Fields{
		"language": source,
		"chars":    len(transcript),
	}).Info("Voice note transcribed")
	return transcript, nil
}

func (c *SarvamClient) multipartBody(audio []byte, source string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="audio.ogg"`)
	header.Set("Content-Type", "audio/ogg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":                c.cfg.Model,
		"source_language_code": source,
		"target_language_code": targetLanguage,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
