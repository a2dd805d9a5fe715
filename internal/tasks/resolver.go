package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/services"
	"github.com/desertthunder/cloudx/internal/shared"
)

// DetailClient looks up canonical song metadata. Implemented by [services.GatewayService].
type DetailClient interface {
	SongDetail(ctx context.Context, token string, ids []int64) (*services.SongDetailResponse, error)
}

// DetailResolver turns catalog descriptors into the unique, importable songs the platform knows about.
type DetailResolver struct {
	client    DetailClient
	batchSize int
	logger    *log.Logger
}

// NewDetailResolver creates a resolver issuing lookups of at most batchSize ids.
//
// Non-positive sizes fall back to [shared.MaxBatchSize] and larger ones are clamped to it.
func NewDetailResolver(client DetailClient, batchSize int, logger *log.Logger) *DetailResolver {
	if batchSize <= 0 || batchSize > shared.MaxBatchSize {
		batchSize = shared.MaxBatchSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &DetailResolver{client: client, batchSize: batchSize, logger: logger}
}

// BatchSize returns the effective lookup batch size.
func (r *DetailResolver) BatchSize() int {
	return r.batchSize
}

// Resolve looks up songs in batches and merges the canonical name, first artist and album into each descriptor.
//
// The result holds one entry per id, ordered by first appearance in the lookup responses.
// Ids the platform suppresses from cloud storage, ids without a privilege entry, and
// returned ids absent from songs are dropped. A failed batch is logged and contributes
// nothing; only context cancellation stops the lookup early.
func (r *DetailResolver) Resolve(ctx context.Context, token string, songs []models.SongDescriptor, progress chan<- ProgressUpdate) ([]models.ResolvedSong, error) {
	originals := make(map[int64]models.SongDescriptor, len(songs))
	for _, s := range songs {
		if _, ok := originals[s.ID]; !ok {
			originals[s.ID] = s
		}
	}

	batches := Batches(songIDs(songs), r.batchSize)
	seen := make(map[int64]bool, len(originals))
	resolved := make([]models.ResolvedSong, 0, len(originals))

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		sendProgress(progress, resolveBatchUpdate(i+1, len(batches), len(batch)))

		resp, err := r.client.SongDetail(ctx, token, batch)
		if err != nil {
			if ctx.Err() != nil {
				return resolved, ctx.Err()
			}
			r.logger.Warn("detail lookup failed, skipping batch", "batch", i+1, "size", len(batch), "error", err)
			continue
		}
		if resp.Code != services.CodeOK {
			r.logger.Warn("detail lookup rejected, skipping batch", "batch", i+1, "code", resp.Code, "message", resp.Message)
			continue
		}

		importable := make(map[int64]bool, len(resp.Privileges))
		for _, p := range resp.Privileges {
			if !p.CloudSuppressed {
				importable[p.ID] = true
			}
		}

		added := 0
		for _, detail := range resp.Songs {
			if seen[detail.ID] || !importable[detail.ID] {
				continue
			}
			original, ok := originals[detail.ID]
			if !ok {
				continue
			}
			seen[detail.ID] = true
			resolved = append(resolved, models.ResolvedSong{
				SongDescriptor: original,
				Name:           detail.Name,
				Artist:         detail.FirstArtist(),
				Album:          detail.Album.Name,
			})
			added++
		}
		r.logger.Debug("batch resolved", "batch", i+1, "requested", len(batch), "returned", len(resp.Songs), "importable", added)
	}

	return resolved, nil
}

// Batches splits ids into consecutive chunks of at most size elements.
func Batches(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

func songIDs(songs []models.SongDescriptor) []int64 {
	ids := make([]int64, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}
	return ids
}
