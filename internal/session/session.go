// Package session finds, stores and verifies the gateway session cookie.
//
// A token comes from, in order: an explicit value (flag or environment), the cookie file,
// or an interactive login (QR scan or a pasted cookie).
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/services"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/desertthunder/cloudx/internal/ui"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultQRTimeout    = 3 * time.Minute
)

// Source names where a resolved token came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceFile     Source = "cookie_file"
	SourceQR       Source = "qr_login"
	SourceManual   Source = "manual"
)

// Gateway is the subset of the gateway client used for login and verification.
type Gateway interface {
	QRKey(ctx context.Context) (*services.QRKeyResponse, error)
	QRCreate(ctx context.Context, key string) (*services.QRCreateResponse, error)
	QRCheck(ctx context.Context, key string) (*services.QRCheckResponse, error)
	UserCloud(ctx context.Context, token string) (*services.UserCloudResponse, error)
}

// Prompter asks the user for input. Implemented by ui.TerminalPrompter.
type Prompter interface {
	Input(title, placeholder, initial string, secret bool) (string, error)
	Choose(title string, choices []ui.Choice) (int, error)
}

// Provider resolves the session token used by every gateway call.
type Provider struct {
	gateway      Gateway
	cookieFile   string
	qrImagePath  string
	qrTimeout    time.Duration
	pollInterval time.Duration
	open         func(string) error
	logger       *log.Logger
}

// Opts configures a [Provider].
type Opts struct {
	Gateway      Gateway
	CookieFile   string
	QRImagePath  string
	QRTimeout    time.Duration // 0 uses DefaultQRTimeout
	PollInterval time.Duration // 0 uses DefaultPollInterval
	Opener       func(string) error
	Logger       *log.Logger
}

// NewProvider creates a Provider.
func NewProvider(opts Opts) *Provider {
	if opts.QRTimeout <= 0 {
		opts.QRTimeout = DefaultQRTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Opener == nil {
		opts.Opener = shared.Open
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &Provider{
		gateway:      opts.Gateway,
		cookieFile:   opts.CookieFile,
		qrImagePath:  opts.QRImagePath,
		qrTimeout:    opts.QRTimeout,
		pollInterval: opts.PollInterval,
		open:         opts.Opener,
		logger:       opts.Logger,
	}
}

// CookieFile returns the path the token is stored at.
func (p *Provider) CookieFile() string {
	return p.cookieFile
}

// Load reads the stored token. A missing or blank file yields "" and no error.
func (p *Provider) Load() (string, error) {
	if p.cookieFile == "" {
		return "", nil
	}

	data, err := os.ReadFile(p.cookieFile)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cookie file %s: %w", p.cookieFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save stores token in the cookie file, readable only by the current user.
func (p *Provider) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty session cookie", shared.ErrInvalidInput)
	}
	if p.cookieFile == "" {
		return fmt.Errorf("%w: no cookie file configured", shared.ErrInvalidConfig)
	}

	if dir := filepath.Dir(p.cookieFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}
	if err := os.WriteFile(p.cookieFile, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}

	p.logger.Info("session cookie saved", "path", p.cookieFile)
	return nil
}

// ImportCurl extracts the cookie from a browser "Copy as cURL" file and saves it.
func (p *Provider) ImportCurl(path string) (string, error) {
	headers, err := shared.ParseCurlFile(path)
	if err != nil {
		return "", err
	}
	if headers.Cookie == "" {
		return "", fmt.Errorf("%w: no cookie found in %s", shared.ErrInvalidInput, path)
	}
	if _, ok := headers.CookieValue("MUSIC_U"); !ok {
		p.logger.Warn("cookie has no MUSIC_U entry, the session may not be logged in", "file", path)
	}

	if err := p.Save(headers.Cookie); err != nil {
		return "", err
	}
	return headers.Cookie, nil
}

// Resolve returns a token from explicit, the cookie file, or an interactive login.
//
// prompter may be nil, in which case a missing token is [shared.ErrNotAuthenticated].
func (p *Provider) Resolve(ctx context.Context, explicit string, prompter Prompter) (string, Source, error) {
	if token := strings.TrimSpace(explicit); token != "" {
		return token, SourceExplicit, nil
	}

	token, err := p.Load()
	if err != nil {
		return "", "", err
	}
	if token != "" {
		p.logger.Debug("using stored session cookie", "path", p.cookieFile)
		return token, SourceFile, nil
	}

	if prompter == nil {
		return "", "", fmt.Errorf("%w: no session cookie in %s", shared.ErrNotAuthenticated, p.cookieFile)
	}
	return p.Interactive(ctx, prompter)
}

// Interactive asks the user how to log in and performs that login.
func (p *Provider) Interactive(ctx context.Context, prompter Prompter) (string, Source, error) {
	choice, err := prompter.Choose("How do you want to log in?", []ui.Choice{
		{Label: "Scan a QR code", Detail: "Scan with the mobile app"},
		{Label: "Paste a cookie", Detail: "Copy the Cookie header from a logged-in browser"},
	})
	if err != nil {
		return "", "", err
	}

	if choice == 0 {
		token, err := p.LoginQR(ctx)
		return token, SourceQR, err
	}

	token, err := prompter.Input("Session cookie", "MUSIC_U=...; __csrf=...", "", true)
	if err != nil {
		return "", "", err
	}
	if err := p.Save(token); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(token), SourceManual, nil
}

// LoginQR runs the QR login flow and saves the resulting cookie.
//
// The code is written to the QR image path and opened with the platform viewer.
// Polling stops when the code expires, the timeout elapses or ctx is cancelled.
func (p *Provider) LoginQR(ctx context.Context) (string, error) {
	if p.gateway == nil {
		return "", shared.ErrServiceUnavailable
	}

	keyResp, err := p.gateway.QRKey(ctx)
	if err != nil {
		return "", err
	}
	key := keyResp.Data.UniKey
	if key == "" {
		return "", fmt.Errorf("%w: no QR key in response", shared.ErrMalformedResponse)
	}

	qr, err := p.gateway.QRCreate(ctx, key)
	if err != nil {
		return "", err
	}
	if err := p.showQR(qr); err != nil {
		return "", err
	}
	defer p.removeQR()

	return p.poll(ctx, key)
}

func (p *Provider) showQR(qr *services.QRCreateResponse) error {
	img, err := DecodeDataURL(qr.Data.QRImg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.qrImagePath, img, 0600); err != nil {
		return fmt.Errorf("failed to write QR image: %w", err)
	}

	p.logger.Info("scan the QR code with the mobile app", "image", p.qrImagePath, "url", qr.Data.QRURL)
	if err := p.open(p.qrImagePath); err != nil {
		p.logger.Warn("could not open the QR image, open it manually", "image", p.qrImagePath, "error", err)
	}
	return nil
}

func (p *Provider) removeQR() {
	if err := os.Remove(p.qrImagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger.Debug("failed to remove QR image", "error", err)
	}
}

func (p *Provider) poll(ctx context.Context, key string) (string, error) {
	pollCtx, cancel := context.WithTimeout(ctx, p.qrTimeout)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	scanned := false
	for {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: QR code was not confirmed within %s", shared.ErrTimeout, p.qrTimeout)
		case <-ticker.C:
		}

		check, err := p.gateway.QRCheck(pollCtx, key)
		if err != nil {
			if pollCtx.Err() != nil {
				continue
			}
			return "", err
		}

		switch check.Code {
		case services.CodeQRExpired:
			return "", shared.ErrLoginExpired
		case services.CodeQRWaiting:
			p.logger.Debug("waiting for QR scan")
		case services.CodeQRScanned:
			if !scanned {
				p.logger.Info("QR code scanned, confirm the login on your phone")
				scanned = true
			}
		case services.CodeQRAuthorized:
			if check.Cookie == "" {
				return "", fmt.Errorf("%w: login confirmed without a cookie", shared.ErrMalformedResponse)
			}
			p.logger.Info("login confirmed")
			if err := p.Save(check.Cookie); err != nil {
				return "", err
			}
			return check.Cookie, nil
		default:
			p.logger.Warn("unexpected QR status", "code", check.Code, "message", check.Message)
		}
	}
}

// Verify checks token against the cloud locker endpoint and returns the locker usage.
func (p *Provider) Verify(ctx context.Context, token string) (*services.UserCloudResponse, error) {
	if p.gateway == nil {
		return nil, shared.ErrServiceUnavailable
	}

	cloud, err := p.gateway.UserCloud(ctx, token)
	if err != nil {
		return nil, err
	}
	if cloud.Code != services.CodeOK {
		return nil, fmt.Errorf("%w: cloud info returned code %d", shared.ErrNotAuthenticated, cloud.Code)
	}
	return cloud, nil
}

// DecodeDataURL returns the bytes of a base64 data URL such as "data:image/png;base64,...".
// A bare base64 string is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	payload := s
	if header, data, ok := strings.Cut(s, ","); ok {
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: QR image is not base64 encoded", shared.ErrMalformedResponse)
		}
		payload = data
	}

	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(b) == 0 {
		return nil, fmt.Errorf("%w: invalid QR image data", shared.ErrMalformedResponse)
	}
	return b, nil
}
