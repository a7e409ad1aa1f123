// Package graph is a thin authenticated HTTP wrapper around the Microsoft
// Graph drive endpoints. It only shapes requests and classifies failures; all
// sync and access logic lives in the services.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"drivebridge/backend/internal/apperrors"
	"drivebridge/backend/internal/models"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// DriveItemType is the @odata.type every genuine drive item change
	// record declares. Anything else in a delta page gets skipped.
	DriveItemType = "#microsoft.graph.driveItem"

	maxAttempts = 3
)

// DeltaItem is one change record from a delta page. The raw payload is kept
// so a record that fails to decode can be logged and skipped without
// poisoning the rest of the page.
type DeltaItem struct {
	ODataType string `json:"@odata.type"`
	models.DriveItem
}

// DeltaPage is one page of the delta feed. Exactly one of NextLink and
// DeltaLink is set: NextLink continues the enumeration, DeltaLink terminates
// it and becomes the cursor for the next incremental sync.
type DeltaPage struct {
	Items     []DeltaItem
	NextLink  string
	DeltaLink string
	// Skipped counts records that failed to decode and were dropped.
	Skipped int
}

type deltaEnvelope struct {
	NextLink  string            `json:"@odata.nextLink"`
	DeltaLink string            `json:"@odata.deltaLink"`
	Value     []json.RawMessage `json:"value"`
}

type Client struct {
	httpClient *http.Client
	// noRedirect reissues the content request without following the 302 so
	// the Location header can be read.
	noRedirect *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		noRedirect: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: DefaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local
// server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// GetDrive fetches the caller's drive snapshot.
func (c *Client) GetDrive(ctx context.Context, accessToken string) (*models.Drive, error) {
	var drive models.Drive
	if err := c.getJSON(ctx, accessToken, c.baseURL+"/me/drive", &drive); err != nil {
		return nil, err
	}
	return &drive, nil
}

// Delta fetches one page of the change feed. An empty cursor starts a full
// enumeration from the beginning.
func (c *Client) Delta(ctx context.Context, accessToken, cursor string) (*DeltaPage, error) {
	url := cursor
	if url == "" {
		url = c.baseURL + "/me/drive/root/delta"
	}

	var envelope deltaEnvelope
	if err := c.getJSON(ctx, accessToken, url, &envelope); err != nil {
		return nil, err
	}

	page := &DeltaPage{
		NextLink:  envelope.NextLink,
		DeltaLink: envelope.DeltaLink,
		Items:     make([]DeltaItem, 0, len(envelope.Value)),
	}
	for _, raw := range envelope.Value {
		var item DeltaItem
		if err := json.Unmarshal(raw, &item); err != nil {
			log.Printf("[GraphClient] skipping malformed delta record: %v", err)
			page.Skipped++
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// CreateShareLink creates (or renews) an anonymous view link for the item.
func (c *Client) CreateShareLink(ctx context.Context, accessToken, itemID string, expiry time.Time) (*models.SharePermission, error) {
	body := map[string]string{
		"type":  "view",
		"scope": "anonymous",
		// Graph wants yyyy-MM-ddTHH:mm:ssZ.
		"expirationDateTime": expiry.UTC().Format("2006-01-02T15:04:05Z"),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/me/drive/items/%s/createLink", c.baseURL, itemID)
	res, err := c.do(ctx, http.MethodPost, url, accessToken, payload)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var perm models.SharePermission
	if err := json.NewDecoder(res.Body).Decode(&perm); err != nil {
		return nil, fmt.Errorf("%w: decoding share permission: %v", apperrors.ErrUpstream, err)
	}
	return &perm, nil
}

// ContentRedirectURL returns the pre-authenticated download location the
// content endpoint redirects to, without following the redirect.
func (c *Client) ContentRedirectURL(ctx context.Context, accessToken, itemID string) (string, error) {
	url := fmt.Sprintf("%s/me/drive/items/%s/content", c.baseURL, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 && res.StatusCode < 400 {
		location := res.Header.Get("Location")
		if location == "" {
			return "", fmt.Errorf("%w: content redirect without location", apperrors.ErrUpstream)
		}
		return location, nil
	}
	return "", c.statusError(res)
}

// DeletePermission revokes a share permission. Graph answers 204.
func (c *Client) DeletePermission(ctx context.Context, accessToken, itemID, permID string) error {
	url := fmt.Sprintf("%s/me/drive/items/%s/permissions/%s", c.baseURL, itemID, permID)
	res, err := c.do(ctx, http.MethodDelete, url, accessToken, nil)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, url string, out any) error {
	res, err := c.do(ctx, http.MethodGet, url, accessToken, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", apperrors.ErrUpstream, err)
	}
	return nil
}

// do issues the request with retries on 429 and 5xx. Any non-2xx outcome
// comes back wrapped as an upstream error.
func (c *Client) do(ctx context.Context, method, url, accessToken string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
		} else if res.StatusCode >= 200 && res.StatusCode < 300 {
			return res, nil
		} else {
			lastErr = c.statusError(res)
			if res.StatusCode != http.StatusTooManyRequests && res.StatusCode < 500 {
				return nil, lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// statusError drains the body and classifies the failure. 4xx bodies carry
// the Graph error detail, which is worth logging.
func (c *Client) statusError(res *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	res.Body.Close()

	if res.StatusCode >= 400 && res.StatusCode < 500 {
		log.Printf("[GraphClient] %s %s -> %d: %s", res.Request.Method, res.Request.URL, res.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d", apperrors.ErrUpstream, res.StatusCode)
}
