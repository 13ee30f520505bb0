// Package backend is the client for the prediction backend: image analysis
// and patient search, both multipart form submissions authenticated by a fresh
// identity token plus the caller's user ID.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"procare-web-go/internal/models"
)

// User-facing fallback messages, kept verbatim from the product copy. The
// backend's own "detail" field takes precedence when present.
const (
	analyzeFallbackMessage = "Error analyzing image. Please try again."
	searchFallbackMessage  = "Error searching patients. Please try again."
	genericFallbackMessage = "Something went wrong."
)

// APIError carries exactly the message shown to the user. Callers display
// Message and nothing else; internal detail goes to the log.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// AnalyzeRequest is the ephemeral submission for one analysis: constructed per
// upload action, sent once, discarded after the response.
type AnalyzeRequest struct {
	Image       io.Reader
	Filename    string
	UserID      string
	IDToken     string
	PatientName string
}

// Service is the backend-client contract consumed by the view layer.
type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error)
	SearchPatients(ctx context.Context, doctorID, idToken, name string) ([]models.PatientRecord, error)
}

// Client talks to the prediction backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend Client for the given base URL. The original
// client configured no timeout at all; an explicit one is set here so a hung
// backend cannot wedge a request forever.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// analyzeResponse is the backend's 200 body for /predict.
type analyzeResponse struct {
	Message          string `json:"message"`
	OriginalImageURL string `json:"original_image_url"`
	MaskImageURL     string `json:"mask_image_url"`
}

// errorResponse is the backend's non-2xx body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Analyze submits an image for analysis. Multipart fields: user_id,
// firebase_token, patient_name, image. Failures come back as *APIError with
// the backend's detail message or a fallback.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"user_id":        req.UserID,
		"firebase_token": req.IDToken,
		"patient_name":   req.PatientName,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}

	part, err := createImagePart(writer, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, req.Image); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	raw, apiErr := c.postMultipart(ctx, "/predict", &body, writer.FormDataContentType(), analyzeFallbackMessage)
	if apiErr != nil {
		return nil, apiErr
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("failed to decode analyze response", zap.Error(err))
		return nil, &APIError{Message: analyzeFallbackMessage}
	}
	return &models.AnalysisResult{
		Message:          resp.Message,
		OriginalImageURL: resp.OriginalImageURL,
		MaskImageURL:     resp.MaskImageURL,
	}, nil
}

// SearchPatients fetches the doctor's patients filtered by name. An empty name
// is the backend's match-all default and returns the doctor's full list.
func (c *Client) SearchPatients(ctx context.Context, doctorID, idToken, name string) ([]models.PatientRecord, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"doctor_id":      doctorID,
		"firebase_token": idToken,
		"name":           name,
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	raw, apiErr := c.postMultipart(ctx, "/patients", &body, writer.FormDataContentType(), searchFallbackMessage)
	if apiErr != nil {
		return nil, apiErr
	}

	var resp struct {
		Patients []models.PatientRecord `json:"patients"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("failed to decode patients response", zap.Error(err))
		return nil, &APIError{Message: searchFallbackMessage}
	}
	return resp.Patients, nil
}

// postMultipart executes one multipart POST. Transport errors and non-2xx
// statuses both collapse to *APIError: the backend's detail field when it can
// be decoded, otherwise the generic fallback; thrown network errors get the
// operation-specific fallback. No retry.
func (c *Client) postMultipart(ctx context.Context, path string, body io.Reader, contentType, transportFallback string) ([]byte, *APIError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		c.logger.Error("failed to build backend request", zap.String("path", path), zap.Error(err))
		return nil, &APIError{Message: transportFallback}
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed", zap.String("path", path), zap.Error(err))
		return nil, &APIError{Message: transportFallback}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		c.logger.Error("failed to read backend response", zap.String("path", path), zap.Error(err))
		return nil, &APIError{Message: transportFallback}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		message := genericFallbackMessage
		var errResp errorResponse
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Detail != "" {
			message = errResp.Detail
		}
		c.logger.Warn("backend returned error",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.String("message", message))
		return nil, &APIError{Message: message}
	}
	return raw, nil
}

// createImagePart writes the image file part with an explicit image/jpeg
// content type; the backend validates the filename extension.
func createImagePart(writer *multipart.Writer, filename string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", "image/jpeg")
	return writer.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
