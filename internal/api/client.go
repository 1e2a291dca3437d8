// Package api provides the HTTP client for the mockup backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to the mockup backend over HTTP. It owns no policy beyond
// request construction and status checking; retries are the caller's
// decision.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// NewClientWithHTTP creates a client with a caller-supplied http.Client,
// used by tests and by callers that need custom transport settings.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: hc,
	}
}

// FileUpload is one file destined for the multipart upload form.
type FileUpload struct {
	Name string
	Data []byte
}

// uploadResponse is the body returned by POST /mockups/upload.
type uploadResponse struct {
	ImageIDs []string `json:"image_ids"`
}

// UploadImages uploads one or more image files under a group identifier and
// returns the backend-assigned image identifiers in upload order. The
// backend contract requires exactly one identifier per uploaded file; any
// other count is a MismatchError and nothing further should be submitted.
func (c *Client) UploadImages(ctx context.Context, groupID string, files []FileUpload) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("group_id", groupID); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mockups/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp uploadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if len(resp.ImageIDs) != len(files) {
		return nil, &MismatchError{Submitted: len(files), Returned: len(resp.ImageIDs)}
	}
	return resp.ImageIDs, nil
}

// MaskData is the JSON body for the per-image mask-data endpoint. The
// parallel lists carry one entry per region; the scalar is_cropped and
// alignment fields duplicate the first list entry for consumers that
// predate multi-region masks.
type MaskData struct {
	Masks         [][][2]float64 `json:"masks"`
	IsCroppedList []bool         `json:"is_cropped_list"`
	AlignmentList []string       `json:"alignment_list"`
	IsCropped     bool           `json:"is_cropped"`
	Alignment     string         `json:"alignment"`
}

// SubmitMaskData posts the mask geometry for a single uploaded image.
func (c *Client) SubmitMaskData(ctx context.Context, imageID string, data MaskData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal mask data: %w", err)
	}

	url := fmt.Sprintf("%s/mockups/images/%s/mask-data", c.baseURL, imageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mask-data request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// templatesResponse is the body returned by GET /api/user-templates.
type templatesResponse struct {
	Templates []string `json:"templates"`
}

// ListTemplates fetches the user's mockup template names.
func (c *Client) ListTemplates(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user-templates", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build templates request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp templatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse templates response: %w", err)
	}
	return resp.Templates, nil
}

// BaseImage describes one selectable base mockup image for a template.
type BaseImage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"image_url"`
}

// ListBaseImages fetches the base mockup images available for a template.
func (c *Client) ListBaseImages(ctx context.Context, template string) ([]BaseImage, error) {
	url := fmt.Sprintf("%s/api/base-mockups/%s", c.baseURL, template)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build base-mockups request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var images []BaseImage
	if err := json.Unmarshal(body, &images); err != nil {
		return nil, fmt.Errorf("failed to parse base-mockups response: %w", err)
	}
	return images, nil
}

// DownloadImage fetches raw image bytes from an absolute or backend-relative URL.
func (c *Client) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	return c.do(req)
}

// do executes the request and returns the response body, converting
// transport failures and non-2xx statuses into errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{
			Status: resp.StatusCode,
			Path:   req.URL.Path,
			Body:   snippet(body),
		}
	}
	return body, nil
}

// snippet truncates a response body for inclusion in error messages.
func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
