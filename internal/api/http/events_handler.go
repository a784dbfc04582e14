package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mind-engage/testcheck/internal/exam"
	syncx "github.com/mind-engage/testcheck/internal/sync"
)

type eventView struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// GET /events?after=&limit=
func EventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := parseIntDefault(r.URL.Query().Get("after"), 0)
		limit := parseIntDefault(r.URL.Query().Get("limit"), exam.DefaultLimit)
		if limit == 0 || limit > exam.MaxLimit {
			limit = exam.MaxLimit
		}
		events, err := repo.Since(r.Context(), int64(after), limit)
		if err != nil {
			internalError(w, r, "Failed to read audit log", err)
			return
		}
		out := make([]eventView, 0, len(events))
		for _, e := range events {
			out = append(out, eventView{
				Seq:       e.Seq,
				SiteID:    e.SiteID,
				Type:      e.Type,
				Key:       e.Key,
				Data:      json.RawMessage(e.DataJSON),
				CreatedAt: time.Unix(e.CreatedAt, 0).UTC(),
			})
		}
		respondJSON(w, http.StatusOK, out)
	}
}
