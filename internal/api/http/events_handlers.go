package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-assess/internal/apperr"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type eventDTO struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"siteId"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
}

// GET /events?after=&limit=
func EventFeedHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		var limit int
		var err error
		if v := r.URL.Query().Get("after"); v != "" {
			if after, err = strconv.ParseInt(v, 10, 64); err != nil || after < 0 {
				writeError(w, r, apperr.Validation("after must be a non-negative integer"))
				return
			}
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if limit, err = strconv.Atoi(v); err != nil {
				writeError(w, r, apperr.Validation("limit must be an integer"))
				return
			}
		}
		evs, err := events.Since(r.Context(), after, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]eventDTO, 0, len(evs))
		for _, e := range evs {
			out = append(out, eventDTO{
				Seq: e.Seq, SiteID: e.SiteID, Type: e.Type, Key: e.Key,
				Data: json.RawMessage(e.DataJSON), CreatedAt: e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
