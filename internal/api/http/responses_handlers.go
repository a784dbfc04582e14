package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/testcheck/internal/exam"
)

// POST /responses
func SubmitResponseHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub exam.Submission
		if err := decodeJSON(w, r, &sub); err != nil {
			respondDetail(w, http.StatusBadRequest, "bad json")
			return
		}
		resp, err := svc.Submit(r.Context(), sub)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, resp)
		case errors.Is(err, exam.ErrInvalidSubmission):
			respondDetail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, exam.ErrTestNotFound):
			respondDetail(w, http.StatusNotFound, detailTestNotFound)
		case errors.Is(err, exam.ErrDuplicateSubmitter):
			respondDetail(w, http.StatusForbidden, "Telegram ID already registered")
		case errors.Is(err, exam.ErrAnswerLength):
			respondDetail(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "Failed to save response", err)
		}
	}
}

// GET /responses/{testId}?skip=&limit=
func ListResponsesHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip := parseIntDefault(r.URL.Query().Get("skip"), 0)
		limit := parseIntDefault(r.URL.Query().Get("limit"), exam.DefaultLimit)
		list, err := svc.ListResponses(r.Context(), chi.URLParam(r, "testId"), skip, limit)
		if err != nil {
			testLookupError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
