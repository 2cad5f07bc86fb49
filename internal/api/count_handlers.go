package api

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/contentmetrics/contentmetrics/internal/counts"
	"github.com/contentmetrics/contentmetrics/internal/schema"
)

// handleCount returns the record count of every user-defined content type,
// keyed by display name. Any failure yields a 500 with the underlying message
// and no partial mapping.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	result, err := s.aggregator.Count(r.Context())
	if err != nil {
		log.WithError(err).WithField("request_id", requestID(r.Context())).Error("content count failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if claims := getClaims(r.Context()); claims != nil {
		log.WithFields(log.Fields{
			"request_id":    requestID(r.Context()),
			"admin":         claims.Email,
			"content_types": result.Len(),
		}).Debug("content counts served")
	}

	body, err := result.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.WithError(err).WithField("request_id", requestID(r.Context())).Error("writing count response")
	}
}

// contentTypeResponse is one registry entry in the content-types listing.
type contentTypeResponse struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	UserDefined bool   `json:"user_defined"`
}

func (s *Server) handleListContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.schemas.ContentTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]contentTypeResponse, 0, len(types))
	for _, ct := range types {
		out = append(out, contentTypeResponse{
			UID:         ct.UID,
			Name:        ct.Name(),
			Kind:        ct.Kind,
			UserDefined: schema.IsUserDefined(ct.UID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"content_types": out})
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"widgets": s.widgets.List()})
}

// contentTypeDetail is one content type with its record breakdown.
type contentTypeDetail struct {
	contentTypeResponse
	Counts counts.Breakdown `json:"counts"`
}

func (s *Server) handleGetContentType(w http.ResponseWriter, r *http.Request) {
	b, err := s.aggregator.Breakdown(r.Context(), r.PathValue("uid"), r.URL.Query().Get("locale"))
	if err != nil {
		if errors.Is(err, counts.ErrUnknownContentType) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ct := b.ContentType
	writeJSON(w, http.StatusOK, contentTypeDetail{
		contentTypeResponse: contentTypeResponse{
			UID:         ct.UID,
			Name:        ct.Name(),
			Kind:        ct.Kind,
			UserDefined: schema.IsUserDefined(ct.UID),
		},
		Counts: b,
	})
}
