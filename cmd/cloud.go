package main

import (
	"context"

	"github.com/desertthunder/cloudx/internal/formatter"
	"github.com/urfave/cli/v3"
)

// CloudInfo prints the cloud locker song count and storage usage.
func (r *Runner) CloudInfo(ctx context.Context, cmd *cli.Command) error {
	token, err := r.token(ctx, cmd)
	if err != nil {
		return err
	}

	cloud, err := r.sessions.Verify(ctx, token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(cloud, true)
	}
	return r.writePlain("%s\n", formatter.RenderCloudInfo(cloud.Count, int64(cloud.Size), int64(cloud.MaxSize)))
}
