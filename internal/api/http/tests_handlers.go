package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/testcheck/internal/exam"
)

const (
	detailTestNotFound = "Test not found"
	detailDeleteFailed = "Test topilmadi yoki o'chirishda xatolik yuz berdi"
)

type createTestRequest struct {
	TestID   string `json:"test_id"`
	Subject1 string `json:"subject1"`
	Subject2 string `json:"subject2"`
	Status   string `json:"status"`
	Answers  string `json:"answers"`

	CreatedAt *time.Time `json:"created_at"` // server clock when absent
}

// POST /tests
func CreateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondDetail(w, http.StatusBadRequest, "bad json")
			return
		}
		in := exam.Test{
			TestID:   req.TestID,
			Subject1: req.Subject1,
			Subject2: req.Subject2,
			Status:   req.Status,
			Answers:  req.Answers,
		}
		if req.CreatedAt != nil {
			in.CreatedAt = req.CreatedAt.UTC()
		}
		t, err := svc.CreateTest(r.Context(), in)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, t)
		case errors.Is(err, exam.ErrTestExists):
			respondDetail(w, http.StatusBadRequest, "Test ID already registered")
		case errors.Is(err, exam.ErrInvalidTest):
			respondDetail(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "Failed to save test", err)
		}
	}
}

// GET /tests/{id}
func GetTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			testLookupError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}

// GET /tests?skip=&limit=
func ListTestsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip := parseIntDefault(r.URL.Query().Get("skip"), 0)
		limit := parseIntDefault(r.URL.Query().Get("limit"), exam.DefaultLimit)
		list, err := svc.ListTests(r.Context(), skip, limit)
		if err != nil {
			internalError(w, r, "Failed to list tests", err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// PATCH /tests/{id}
func UpdateTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p exam.TestPatch
		if err := decodeJSON(w, r, &p); err != nil {
			respondDetail(w, http.StatusBadRequest, "bad json")
			return
		}
		t, err := svc.UpdateTest(r.Context(), chi.URLParam(r, "id"), p)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, t)
		case errors.Is(err, exam.ErrTestNotFound):
			respondDetail(w, http.StatusNotFound, detailTestNotFound)
		case errors.Is(err, exam.ErrTestHasResponses):
			respondDetail(w, http.StatusConflict, "answers cannot change once responses are stored")
		case errors.Is(err, exam.ErrInvalidTest):
			respondDetail(w, http.StatusBadRequest, err.Error())
		default:
			internalError(w, r, "Failed to update test", err)
		}
	}
}

// DELETE /tests/{id}
// Any failure is reported as 404; the cause is logged.
func DeleteTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.DeleteTest(r.Context(), id); err != nil {
			if !errors.Is(err, exam.ErrTestNotFound) {
				log.Printf("delete test %s: %v", id, err)
			}
			respondDetail(w, http.StatusNotFound, detailDeleteFailed)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("%s testi va uning javoblari muvaffaqiyatli o'chirildi", id),
		})
	}
}

// GET /tests/{id}/stats
func StatsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			testLookupError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, st)
	}
}

func testLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, exam.ErrTestNotFound) {
		respondDetail(w, http.StatusNotFound, detailTestNotFound)
		return
	}
	internalError(w, r, "Failed to load test", err)
}
