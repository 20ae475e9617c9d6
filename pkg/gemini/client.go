// Package gemini provides a client for the generative language REST API:
// file upload, file state polling, content generation and file deletion.
package gemini

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

	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/resilience"
)

// File states reported by the files endpoint.
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

// Client defines the generative language operations used for transcription.
type Client interface {
	// UploadFile stores a media file remotely and returns its metadata.
	UploadFile(ctx context.Context, displayName, mimeType string, data []byte) (*File, error)
	// GetFile returns the current metadata (including state) of an uploaded file.
	GetFile(ctx context.Context, name string) (*File, error)
	// GenerateContent runs a model over the given request.
	GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error)
	// DeleteFile removes an uploaded file.
	DeleteFile(ctx context.Context, name string) error
}

// File is the metadata of an uploaded media file.
type File struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	MimeType    string `json:"mimeType"`
	SizeBytes   string `json:"sizeBytes,omitempty"`
	URI         string `json:"uri"`
	State       string `json:"state"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one conversation turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text fragment or a reference to an uploaded file.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"fileData,omitempty"`
}

// FileData references an uploaded file by URI.
type FileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

// GenerateResponse is the parsed generateContent response.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  UsageMetadata   `json:"usageMetadata"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// PromptFeedback reports why a prompt was blocked.
type PromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// UsageMetadata tracks token consumption.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

var (
	// ErrNoContent is returned when a response carries no usable text.
	ErrNoContent = eris.New("gemini: response has no content")
	// ErrBlocked is returned when the prompt or the answer was stopped by
	// a safety or recitation filter.
	ErrBlocked = eris.New("gemini: response blocked")
)

// blockedFinishReasons end a candidate without a complete answer.
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// Err reports why the response cannot be used as an answer, or nil.
func (r *GenerateResponse) Err() error {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return eris.Wrapf(ErrBlocked, "prompt: %s", r.PromptFeedback.BlockReason)
	}
	if len(r.Candidates) == 0 {
		return eris.Wrap(ErrNoContent, "no candidates")
	}
	if reason := r.Candidates[0].FinishReason; blockedFinishReasons[reason] {
		return eris.Wrapf(ErrBlocked, "finish reason %s", reason)
	}
	if strings.TrimSpace(r.Text()) == "" {
		return eris.Wrap(ErrNoContent, "empty text")
	}
	return nil
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// NewFileRequest builds a single-turn request pairing instructions with a file.
func NewFileRequest(instructions string, f *File) *GenerateRequest {
	return &GenerateRequest{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{Text: instructions},
				{FileData: &FileData{MimeType: f.MimeType, FileURI: f.URI}},
			},
		}},
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new generative language API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com",
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends req and returns the body. Statuses >= 400 become *resilience.HTTPError.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read response body")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, resilience.NewHTTPError("gemini", resp.StatusCode, body)
	}
	return body, nil
}

func (c *httpClient) UploadFile(ctx context.Context, displayName, mimeType string, data []byte) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create metadata part")
	}
	if err := json.NewEncoder(meta).Encode(map[string]any{
		"file": map[string]string{"displayName": displayName},
	}); err != nil {
		return nil, eris.Wrap(err, "gemini: encode metadata")
	}

	media, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create media part")
	}
	if _, err := media.Write(data); err != nil {
		return nil, eris.Wrap(err, "gemini: write media part")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "gemini: close multipart body")
	}

	reqURL := c.baseURL + "/upload/v1beta/files?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create upload request")
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	body, err := c.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: upload file")
	}

	var out struct {
		File File `json:"file"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "gemini: unmarshal upload response")
	}
	if out.File.Name == "" {
		return nil, eris.New("gemini: upload response missing file name")
	}
	return &out.File, nil
}

func (c *httpClient) GetFile(ctx context.Context, name string) (*File, error) {
	reqURL := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create get request")
	}

	body, err := c.do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "gemini: get file %s", name)
	}

	var f File
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, eris.Wrap(err, "gemini: unmarshal file")
	}
	return &f, nil
}

func (c *httpClient) GenerateContent(ctx context.Context, model string, greq *GenerateRequest) (*GenerateResponse, error) {
	payload, err := json.Marshal(greq)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: marshal generate request")
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	var resp GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "gemini: unmarshal generate response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, eris.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return &resp, nil
}

func (c *httpClient) DeleteFile(ctx context.Context, name string) error {
	reqURL := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "gemini: create delete request")
	}
	if _, err := c.do(req); err != nil {
		return eris.Wrapf(err, "gemini: delete file %s", name)
	}
	return nil
}
