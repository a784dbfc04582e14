package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/testcheck/internal/exam"
	"github.com/mind-engage/testcheck/internal/export"
)

const detailNothingToExport = "Test topilmadi yoki javoblar mavjud emas"

// GET /export/{testId}?format=xlsx|pdf
func ExportResultsHandler(ex *export.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			respondDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		f, err := ex.Export(r.Context(), chi.URLParam(r, "testId"), format)
		switch {
		case err == nil:
		case errors.Is(err, exam.ErrTestNotFound), errors.Is(err, exam.ErrRelationNotFound):
			respondDetail(w, http.StatusNotFound, detailNothingToExport)
			return
		default:
			internalError(w, r, "Failed to export results", err)
			return
		}

		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+f.Name)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Archive-URL")
		if f.ArchiveURL != "" {
			w.Header().Set("X-Archive-URL", f.ArchiveURL)
		}
		http.ServeContent(w, r, f.Name, time.Now(), bytes.NewReader(f.Data))
	}
}
