// Package whatsapp sends documents to patients through the WhatsApp Cloud
// API. Delivery is a two-step exchange: upload the file to the business
// phone number's media store, then send a document message referencing the
// returned media id.
package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrInvalidPhone is returned when a recipient number cannot be normalized
// to ten national digits.
var ErrInvalidPhone = fmt.Errorf("whatsapp: invalid phone number")

// APIError is a non-2xx response from the Cloud API, kept verbatim so the
// caller can log the provider's error payload.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: api status %d: %s", e.StatusCode, e.Body)
}

// Client talks to one WhatsApp business phone number.
type Client struct {
	http    *resty.Client
	phoneID string
	log     zerolog.Logger
}

func NewClient(baseURL, token, phoneID string, log zerolog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token),
		phoneID: phoneID,
		log:     log,
	}
}

type uploadResponse struct {
	ID string `json:"id"`
}

// UploadMedia pushes a PDF to the media endpoint and returns the media id.
func (c *Client) UploadMedia(ctx context.Context, filePath string) (string, error) {
	var result uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", filePath).
		SetFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              "application/pdf",
		}).
		SetResult(&result).
		Post("/" + c.phoneID + "/media")
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	if result.ID == "" {
		return "", fmt.Errorf("upload media: response missing media id")
	}

	c.log.Debug().Str("media_id", result.ID).Msg("whatsapp media uploaded")
	return result.ID, nil
}

type documentPayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type messageRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Document         documentPayload `json:"document"`
}

// SendDocument sends a previously uploaded document to the recipient. The
// recipient must already be in international form (see NormalizePhone).
func (c *Client) SendDocument(ctx context.Context, to, mediaID, filename, caption string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(messageRequest{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "document",
			Document: documentPayload{
				ID:       mediaID,
				Filename: filename,
				Caption:  caption,
			},
		}).
		Post("/" + c.phoneID + "/messages")
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	c.log.Info().Str("to", to).Str("media_id", mediaID).Msg("whatsapp document sent")
	return nil
}

// NormalizePhone reduces a raw phone entry to the last ten digits and
// prefixes the India country code, matching how reception stores numbers.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 10 {
		return "", ErrInvalidPhone
	}
	return "91" + d[len(d)-10:], nil
}
