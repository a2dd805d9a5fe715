// Package catalog reads song descriptor lists exported from a local music library.
//
// A catalog is a JSON object whose "data" array holds one descriptor per file:
//
//	{"data": [{"id": 1, "size": 1024, "ext": "flac", "bitrate": 999000, "md5": "..."}]}
//
// Only the identifying fields are kept; any other keys are ignored. Numeric
// fields may be written as JSON numbers or as strings.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/services"
	"github.com/desertthunder/cloudx/internal/shared"
)

// DefaultPath is the catalog file looked up when none is configured.
const DefaultPath = "songs.json"

type entry struct {
	ID      *services.FlexInt `json:"id"`
	Size    services.FlexInt  `json:"size"`
	Ext     string            `json:"ext"`
	Bitrate services.FlexInt  `json:"bitrate"`
	MD5     string            `json:"md5"`
}

type document struct {
	Data *[]entry `json:"data"`
}

// Loader reads [models.SongDescriptor] lists from catalog files.
type Loader struct {
	logger *log.Logger
}

// NewLoader creates a Loader. A nil logger discards warnings.
func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Loader{logger: logger}
}

// Load reads the catalog at path.
//
// A missing file returns [shared.ErrCatalogNotFound], unparseable content or a missing
// "data" array returns [shared.ErrInvalidCatalog], and a catalog with no usable entries
// returns [shared.ErrEmptyCatalog].
func (l *Loader) Load(path string) ([]models.SongDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCatalog, err)
	}
	defer f.Close()

	songs, err := l.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return songs, nil
}

// Read decodes a catalog document from r.
func (l *Loader) Read(r io.Reader) ([]models.SongDescriptor, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCatalog, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: missing \"data\" array", shared.ErrInvalidCatalog)
	}

	songs := make([]models.SongDescriptor, 0, len(*doc.Data))
	for i, e := range *doc.Data {
		if e.ID == nil || *e.ID == 0 {
			l.logger.Warn("skipping catalog entry without id", "index", i)
			continue
		}
		songs = append(songs, models.SongDescriptor{
			ID:      int64(*e.ID),
			Size:    int64(e.Size),
			Ext:     e.Ext,
			Bitrate: int64(e.Bitrate),
			MD5:     e.MD5,
		})
	}

	if len(songs) == 0 {
		return nil, shared.ErrEmptyCatalog
	}

	l.logger.Debug("catalog loaded", "entries", len(*doc.Data), "songs", len(songs))
	return songs, nil
}
