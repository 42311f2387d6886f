// Package assets resolves the shader and texture identifiers that scenes and pipelines refer to.
// Both stores cache what they load and hand results out as futures, so a pipeline can request
// several assets at once and wait for them together.
package assets

import (
	"errors"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/charmbracelet/log"
)

var (
	// ErrNotFound is returned when an identifier does not name a readable asset.
	ErrNotFound = errors.New("assets: not found")

	// ErrStoreClosed is returned by requests made after Close.
	ErrStoreClosed = errors.New("assets: store closed")

	// ErrNotWatchable is returned by Watch when the store has no directory on disk.
	ErrNotWatchable = errors.New("assets: store has no directory to watch")
)

// normalizeID converts an identifier to the slash separated, cleaned form used as a cache key.
func normalizeID(id string) string {
	id = strings.TrimSpace(strings.ReplaceAll(id, `\`, "/"))
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	return id
}

func defaultLogger(store string) *log.Logger {
	return logger.With("store", store)
}
