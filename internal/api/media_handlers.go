package api

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise-server/internal/media/images"
)

// registerMediaRoutes serves stored book images. Object keys are unguessable,
// so these routes are public like any CDN path.
func (s *Server) registerMediaRoutes() {
	s.router.Get("/media/*", s.handleGetMedia)
}

var mediaContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	if s.services.Media == nil {
		http.NotFound(w, r)
		return
	}

	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	data, err := s.services.Media.Get(key)
	if err != nil {
		if !errors.Is(err, images.ErrObjectNotFound) {
			s.logger.Warn("failed to read media object", "key", key, "error", err)
		}
		http.NotFound(w, r)
		return
	}

	contentType, ok := mediaContentTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	// Keys embed a fresh UUID per upload, so content never changes under a key.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
