package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the server reports 404 for a fetched resource.
// The reconciler recovers from it on status fetches; everywhere else it is
// fatal.
var ErrNotFound = errors.New("not found")

// APIError is any non-success response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mastodon API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a Mastodon API client covering the endpoints the importer needs:
// status create/edit/fetch, media upload and processing status, and the OAuth
// application flow.
type Client struct {
	host       string
	httpClient *http.Client

	// authorization is the "Bearer <token>" value, set after authentication.
	authorization string
}

// NewClient creates a client for the configured server.
func NewClient(cfg Config) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		host: strings.TrimSuffix(cfg.Host, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// Host returns the configured server base URL.
func (c *Client) Host() string {
	return c.host
}

// SetAuthorization installs the credential used on authenticated calls.
func (c *Client) SetAuthorization(authorization string) {
	c.authorization = authorization
}

// CreateStatusRequest carries everything needed to post one status.
type CreateStatusRequest struct {
	Status      string
	Language    string
	CreatedAt   time.Time
	InReplyToID string
	MediaIDs    []string
}

// CreateStatus posts a new status. The idempotency key guards against
// transport-level retries double-creating.
func (c *Client) CreateStatus(ctx context.Context, idempotencyKey string, req CreateStatusRequest) (*Status, error) {
	form := url.Values{}
	form.Set("status", req.Status)
	if req.Language != "" {
		form.Set("language", req.Language)
	}
	form.Set("created_at", req.CreatedAt.UTC().Format(time.RFC3339))
	if req.InReplyToID != "" {
		form.Set("in_reply_to_id", req.InReplyToID)
	}
	for _, id := range req.MediaIDs {
		form.Add("media_ids[]", id)
	}

	var status Status
	if err := c.form(ctx, http.MethodPost, "/api/v1/statuses", idempotencyKey, form, &status); err != nil {
		return nil, fmt.Errorf("failed to create status: %w", err)
	}
	return &status, nil
}

// EditStatus replaces the content of an existing status.
func (c *Client) EditStatus(ctx context.Context, idempotencyKey, id string, status string, mediaIDs []string) (*Status, error) {
	form := url.Values{}
	form.Set("status", status)
	for _, mediaID := range mediaIDs {
		form.Add("media_ids[]", mediaID)
	}

	var edited Status
	if err := c.form(ctx, http.MethodPut, "/api/v1/statuses/"+id, idempotencyKey, form, &edited); err != nil {
		return nil, fmt.Errorf("failed to edit status %s: %w", id, err)
	}
	return &edited, nil
}

// GetStatus fetches a status by id. A 404 is reported as ErrNotFound.
func (c *Client) GetStatus(ctx context.Context, id string) (*Status, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1/statuses/"+id, "", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("status %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// UploadMedia uploads one attachment via multipart request. The second result
// reports whether the attachment is immediately usable (200) or still being
// processed server-side (202); callers poll GetMedia in the latter case.
func (c *Client) UploadMedia(ctx context.Context, name, filename, contentType string, data io.Reader, description string) (string, bool, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", false, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", false, fmt.Errorf("failed to buffer media %s: %w", filename, err)
	}
	if err := writer.WriteField("description", description); err != nil {
		return "", false, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", false, fmt.Errorf("failed to build multipart body: %w", err)
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/api/v2/media", "", &buf, writer.FormDataContentType())
	if err != nil {
		return "", false, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		var attachment MediaAttachment
		if err := json.Unmarshal(body, &attachment); err != nil {
			return "", false, fmt.Errorf("failed to decode media attachment: %w", err)
		}
		return attachment.ID, resp.StatusCode == http.StatusOK, nil
	default:
		return "", false, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// GetMedia reports whether a previously uploaded attachment has finished
// processing: 200 means ready, 206 means still processing. Anything else is a
// hard failure.
func (c *Client) GetMedia(ctx context.Context, id string) (bool, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1/media/"+id, "", nil, "")
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusPartialContent:
		return false, nil
	default:
		return false, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// Application is a registered OAuth application.
type Application struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// CreateApplication registers the importer as an OAuth application.
func (c *Client) CreateApplication(ctx context.Context, name, website string) (*Application, error) {
	form := url.Values{}
	form.Set("client_name", name)
	form.Set("redirect_uris", RedirectURI)
	form.Set("scopes", Scopes)
	form.Set("website", website)

	var app Application
	if err := c.form(ctx, http.MethodPost, "/api/v1/apps", "", form, &app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return &app, nil
}

// Token is an OAuth access token response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// CreateOAuthToken exchanges an authorization code for an access token.
func (c *Client) CreateOAuthToken(ctx context.Context, clientID, clientSecret, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("redirect_uri", RedirectURI)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("scope", Scopes)

	var token Token
	if err := c.form(ctx, http.MethodPost, "/oauth/token", "", form, &token); err != nil {
		return nil, fmt.Errorf("failed to create oauth token: %w", err)
	}
	return &token, nil
}

// Account is the authenticated user's account.
type Account struct {
	ID string `json:"id"`
}

// VerifyCredentials confirms the installed credential is valid.
func (c *Client) VerifyCredentials(ctx context.Context) (*Account, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/v1/accounts/verify_credentials", "", nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &account, nil
}

// form sends a form-encoded request and decodes a 2xx JSON response into
// result.
func (c *Client) form(ctx context.Context, method, path, idempotencyKey string, form url.Values, result any) error {
	resp, body, err := c.do(ctx, method, path, idempotencyKey, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// do sends one request and returns the response with its fully read body.
// Status handling is left to the caller because several endpoints give
// non-2xx codes domain meaning.
func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, respBody, nil
}
