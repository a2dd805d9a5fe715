package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/cloudx/internal/formatter"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin stores a session cookie obtained by QR scan, from --cookie, or from a browser cURL export.
//
// Without a flag the user is asked to choose, which requires a terminal.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	qr := cmd.Bool("qr")
	cookie := cmd.String("cookie")
	curlFile := cmd.String("curl-file")

	set := 0
	for _, b := range []bool{qr, cookie != "", curlFile != ""} {
		if b {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%w: use only one of --qr, --cookie and --curl-file", shared.ErrInvalidArgument)
	}

	var (
		token string
		err   error
	)
	switch {
	case qr:
		token, err = r.sessions.LoginQR(ctx)
	case cookie != "":
		token = cookie
		err = r.sessions.Save(cookie)
	case curlFile != "":
		r.logger.Info("reading session cookie from cURL export", "file", curlFile)
		token, err = r.sessions.ImportCurl(curlFile)
	default:
		if r.prompter == nil {
			return fmt.Errorf("%w: pass --qr, --cookie or --curl-file", shared.ErrNotInteractive)
		}
		token, _, err = r.sessions.Interactive(ctx, r.prompter)
	}
	if err != nil {
		return err
	}

	cloud, err := r.sessions.Verify(ctx, token)
	if err != nil {
		return err
	}

	r.writePlain("✓ Logged in, session saved to %s\n", r.sessions.CookieFile())
	return r.writePlain("%s\n", formatter.RenderCloudInfo(cloud.Count, int64(cloud.Size), int64(cloud.MaxSize)))
}

// AuthStatus checks that the session is accepted by the cloud locker endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking session status")

	explicit := cmd.String("cookie")
	if explicit == "" {
		explicit = r.config.Session.Cookie
	}
	token, src, err := r.sessions.Resolve(ctx, explicit, nil)
	if err != nil {
		return err
	}

	if _, err := r.sessions.Verify(ctx, token); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("Session (%s): ✗ Not authenticated\n", src)
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	return r.writePlain("Session (%s): ✓ Authenticated\n", src)
}

// AuthLogout removes the stored session cookie.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	path := r.sessions.CookieFile()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.writePlain("No stored session\n")
		}
		return fmt.Errorf("failed to remove cookie file: %w", err)
	}

	r.logger.Info("session cookie removed", "path", path)
	return r.writePlain("✓ Logged out\n")
}
