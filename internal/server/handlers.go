package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/odata"
)

type objectEntry struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
}

func (s *Server) handleServiceDocument(w http.ResponseWriter, r *http.Request) {
	body, err := s.backend.ServiceDocument(r.Context(), requestContext(r, ""))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDocument(w, odata.ContentTypeJSON, body)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	body, err := s.backend.Metadata(r.Context(), requestContext(r, ""))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDocument(w, odata.ContentTypeXML, body)
}

func (s *Server) handleEntityCollection(w http.ResponseWriter, r *http.Request) {
	body, err := s.backend.EntityCollection(r.Context(), requestContext(r, pathParam(r, "object")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeDocument(w, odata.ContentTypeJSON, body)
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := s.backend.Databases(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"databases": names})
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	c := requestContext(r, "")
	objects, err := s.backend.Objects(r.Context(), c.Database)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	root := c.ServiceRoot()
	entries := make([]objectEntry, 0, len(objects))
	for _, o := range objects {
		entries = append(entries, objectEntry{
			Schema: o.Schema,
			Name:   o.Name,
			Kind:   string(o.Kind),
			URL:    root + url.PathEscape(o.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"database": c.Database, "objects": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).With().Err(err).Logger().Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  errs.Public(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestContext derives the @odata.context base from the request's own
// scheme and host.
func requestContext(r *http.Request, object string) odata.Context {
	return odata.Context{
		BaseURL:  baseURL(r),
		Database: pathParam(r, "database"),
		Object:   object,
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + "/"
}

// pathParam returns a route parameter. chi matches on the raw path when the
// request carries one, so such values are still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func writeDocument(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set(odata.HeaderVersion, odata.Version)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a {"error": message} body. Not-found
// is an expected outcome and logs at debug.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)

	l := logger.FromContext(r.Context()).With().
		Str("kind", errs.KindOf(err).String()).
		Int("status", status).
		Err(err).
		Logger()
	if status >= http.StatusInternalServerError {
		l.Error("request failed")
	} else {
		l.Debug("request rejected")
	}

	writeJSON(w, status, map[string]string{"error": errs.Public(err)})
}
