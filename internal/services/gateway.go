// Gateway client for the local music API proxy
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "http://localhost:3000"

// GatewayService provides typed and raw access to the gateway endpoints.
type GatewayService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// GatewayOpts contains configuration options for creating a GatewayService.
type GatewayOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64 // 0 disables pacing
}

// NewGatewayService creates a new gateway client.
func NewGatewayService(opts GatewayOpts) *GatewayService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &GatewayService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		now:        time.Now,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to path with params plus a cache-busting timestamp.
func (g *GatewayService) Get(ctx context.Context, path string, params url.Values) (*APIResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("time", strconv.FormatInt(g.now().Unix(), 10))
	fullURL := g.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// getJSON performs a GET and decodes the body into out.
func (g *GatewayService) getJSON(ctx context.Context, path string, params url.Values, out any) (*APIResponse, error) {
	resp, err := g.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return resp, fmt.Errorf("%w: %s: %v (body: %s)", shared.ErrMalformedResponse, path, err, truncate(resp.Body, 200))
	}
	return resp, nil
}

// SongDetail looks up canonical metadata and privileges for ids.
func (g *GatewayService) SongDetail(ctx context.Context, token string, ids []int64) (*SongDetailResponse, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(parts, ","))
	params.Set("cookie", token)

	var out SongDetailResponse
	if _, err := g.getJSON(ctx, "/song/detail", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloudImport asks the platform to import song into the user's cloud locker by file fingerprint.
func (g *GatewayService) CloudImport(ctx context.Context, token string, song models.ResolvedSong) (*CloudImportResponse, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(song.ID, 10))
	params.Set("cookie", token)
	params.Set("song", song.Name)
	params.Set("artist", song.Artist)
	params.Set("album", song.Album)
	params.Set("fileSize", strconv.FormatInt(song.Size, 10))
	params.Set("bitrate", strconv.FormatInt(song.Bitrate, 10))
	params.Set("md5", song.MD5)
	params.Set("fileType", song.Ext)

	var out CloudImportResponse
	resp, err := g.getJSON(ctx, "/cloud/import", params, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = resp.Body
	return &out, nil
}

// QRKey requests a new QR login key.
func (g *GatewayService) QRKey(ctx context.Context) (*QRKeyResponse, error) {
	var out QRKeyResponse
	if _, err := g.getJSON(ctx, "/login/qr/key", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCreate renders the QR code for key, including a base64 PNG data URL.
func (g *GatewayService) QRCreate(ctx context.Context, key string) (*QRCreateResponse, error) {
	params := url.Values{}
	params.Set("key", key)
	params.Set("qrimg", "true")

	var out QRCreateResponse
	if _, err := g.getJSON(ctx, "/login/qr/create", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCheck polls the scan state of key.
func (g *GatewayService) QRCheck(ctx context.Context, key string) (*QRCheckResponse, error) {
	params := url.Values{}
	params.Set("key", key)

	var out QRCheckResponse
	if _, err := g.getJSON(ctx, "/login/qr/check", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserCloud fetches the cloud locker usage for the session.
func (g *GatewayService) UserCloud(ctx context.Context, token string) (*UserCloudResponse, error) {
	params := url.Values{}
	params.Set("cookie", token)
	params.Set("limit", "1")

	var out UserCloudResponse
	if _, err := g.getJSON(ctx, "/user/cloud", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// truncate renders at most n bytes of b, backing off to a rune boundary.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "..."
}
