package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mind-engage/testcheck/internal/grading"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	defaultStatus  = "inactive"
	maxStatusLen   = 10
	maxTelegramLen = 20

	defaultNotifyTimeout = 10 * time.Second
)

// Test ids end up in URLs, bot deep links and file names.
var testIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Notifier tells an examinee about their stored result.
type Notifier interface {
	NotifyScore(ctx context.Context, t Test, r Response) error
}

// EventRecorder appends domain events to the audit log.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, payload any) error
}

// ArchivePurger drops stored copies of a test's exported results.
type ArchivePurger interface {
	PurgeArchive(ctx context.Context, testID string) error
}

// Service orchestrates the answer key store, the scorer and the response relations.
type Service struct {
	store    Store
	grader   grading.Grader
	notifier Notifier
	events   EventRecorder
	archive  ArchivePurger
	actor    func(context.Context) string
	now      func() time.Time

	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

type ServiceOption func(*Service)

func WithGrader(g grading.Grader) ServiceOption    { return func(s *Service) { s.grader = g } }
func WithNotifier(n Notifier) ServiceOption        { return func(s *Service) { s.notifier = n } }
func WithEvents(e EventRecorder) ServiceOption     { return func(s *Service) { s.events = e } }
func WithArchive(a ArchivePurger) ServiceOption    { return func(s *Service) { s.archive = a } }
func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }

// WithActor names who triggered an event; the name is stored with the audit record.
func WithActor(f func(context.Context) string) ServiceOption { return func(s *Service) { s.actor = f } }

// WithNotifyTimeout bounds each score notification.
func WithNotifyTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.notifyTimeout = d }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewPositionalGrader(),
		now:    time.Now,

		notifyTimeout: defaultNotifyTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizePage applies the default page size and clamps out-of-range values.
func NormalizePage(offset, limit int) ListOpts {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListOpts{Offset: offset, Limit: limit}
}

func (s *Service) CreateTest(ctx context.Context, t Test) (Test, error) {
	t.TestID = strings.TrimSpace(t.TestID)
	if !testIDPattern.MatchString(t.TestID) {
		return Test{}, fmt.Errorf("%w: test_id must be 1-64 letters, digits, '_' or '-'", ErrInvalidTest)
	}
	if t.Answers == "" {
		return Test{}, fmt.Errorf("%w: answers required", ErrInvalidTest)
	}
	if t.Status == "" {
		t.Status = defaultStatus
	}
	if utf8.RuneCountInString(t.Status) > maxStatusLen {
		return Test{}, fmt.Errorf("%w: status longer than %d characters", ErrInvalidTest, maxStatusLen)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}

	stored, err := s.store.CreateTest(ctx, t)
	if err != nil {
		return Test{}, err
	}
	s.record(ctx, "TestCreated", stored.TestID, stored)
	return stored, nil
}

func (s *Service) GetTest(ctx context.Context, testID string) (Test, error) {
	return s.store.GetTest(ctx, testID)
}

func (s *Service) ListTests(ctx context.Context, offset, limit int) ([]Test, error) {
	return s.store.ListTests(ctx, NormalizePage(offset, limit))
}

func (s *Service) UpdateTest(ctx context.Context, testID string, p TestPatch) (Test, error) {
	if p.Status != nil && utf8.RuneCountInString(*p.Status) > maxStatusLen {
		return Test{}, fmt.Errorf("%w: status longer than %d characters", ErrInvalidTest, maxStatusLen)
	}
	if p.Answers != nil && *p.Answers == "" {
		return Test{}, fmt.Errorf("%w: answers cannot be empty", ErrInvalidTest)
	}
	t, err := s.store.UpdateTest(ctx, testID, p)
	if err != nil {
		return Test{}, err
	}
	s.record(ctx, "TestUpdated", testID, p)
	return t, nil
}

// DeleteTest removes the test together with its response relation.
// Archived exports are purged afterwards; a purge failure is only logged.
func (s *Service) DeleteTest(ctx context.Context, testID string) error {
	if err := s.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	s.record(ctx, "TestDeleted", testID, map[string]string{"relation": RelationName(testID)})
	if s.archive != nil {
		if err := s.archive.PurgeArchive(ctx, testID); err != nil {
			log.Printf("purge archive of %s: %v", testID, err)
		}
	}
	return nil
}

// Submit scores sub against its test and stores it. Checks run in order:
// test exists, submitter not seen yet, answer length matches the key.
// The examinee is notified in the background once the response is stored.
func (s *Service) Submit(ctx context.Context, sub Submission) (Response, error) {
	if err := validateSubmission(sub); err != nil {
		return Response{}, err
	}
	t, err := s.store.GetTest(ctx, sub.TestID)
	if err != nil {
		return Response{}, err
	}

	seen, err := s.store.SubmitterExists(ctx, sub.TestID, sub.TelegramID)
	if err != nil {
		return Response{}, err
	}
	if seen {
		return Response{}, ErrDuplicateSubmitter
	}

	got, want := utf8.RuneCountInString(sub.Answers), utf8.RuneCountInString(t.Answers)
	if got != want {
		return Response{}, &AnswerLengthError{Got: got, Want: want}
	}

	score, err := s.grader.Score(sub.Answers, t.Answers)
	if err != nil {
		if errors.Is(err, grading.ErrLengthMismatch) {
			return Response{}, &AnswerLengthError{Got: got, Want: want}
		}
		return Response{}, err
	}

	r, err := s.store.InsertResponse(ctx, Response{
		TestID:     sub.TestID,
		TelegramID: sub.TelegramID,
		FirstName:  sub.FirstName,
		LastName:   sub.LastName,
		MiddleName: sub.MiddleName,
		Region:     sub.Region,
		Answers:    sub.Answers,
		Score:      score,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return Response{}, err
	}

	s.record(ctx, "ResponseSubmitted", RelationName(t.TestID), map[string]any{
		"response_id": r.ID,
		"telegram_id": r.TelegramID,
		"score":       r.Score,
	})
	if s.notifier != nil {
		s.pending.Add(1)
		go s.notify(context.WithoutCancel(ctx), t, r)
	}
	return r, nil
}

func (s *Service) notify(ctx context.Context, t Test, r Response) {
	defer s.pending.Done()
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyScore(ctx, t, r); err != nil {
		log.Printf("notify %s about %s: %v", r.TelegramID, t.TestID, err)
	}
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() { s.pending.Wait() }

func validateSubmission(sub Submission) error {
	required := []struct{ name, value string }{
		{"test_id", sub.TestID},
		{"telegram_id", sub.TelegramID},
		{"first_name", sub.FirstName},
		{"last_name", sub.LastName},
		{"region", sub.Region},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s required", ErrInvalidSubmission, f.name)
		}
	}
	if len(sub.TelegramID) > maxTelegramLen {
		return fmt.Errorf("%w: telegram_id longer than %d characters", ErrInvalidSubmission, maxTelegramLen)
	}
	return nil
}

// ListResponses pages through a test's responses in submission order.
func (s *Service) ListResponses(ctx context.Context, testID string, offset, limit int) ([]Response, error) {
	if _, err := s.store.GetTest(ctx, testID); err != nil {
		return nil, err
	}
	return s.store.ListResponses(ctx, testID, NormalizePage(offset, limit))
}

// Ranked returns the test and its responses by score descending.
func (s *Service) Ranked(ctx context.Context, testID string) (Test, []Response, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Test{}, nil, err
	}
	ok, err := s.store.RelationExists(ctx, testID)
	if err != nil {
		return Test{}, nil, err
	}
	if !ok {
		return Test{}, nil, ErrRelationNotFound
	}
	rows, err := s.store.ListRanked(ctx, testID)
	if err != nil {
		return Test{}, nil, err
	}
	return t, rows, nil
}

func (s *Service) Stats(ctx context.Context, testID string) (Stats, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Stats{}, err
	}
	st, err := s.store.ResponseStats(ctx, testID)
	if err != nil {
		return Stats{}, err
	}
	st.AvgScore = math.Round(st.AvgScore*100) / 100
	st.MaxPossible = s.grader.MaxScore(utf8.RuneCountInString(t.Answers))
	return st, nil
}

// auditRecord is the stored payload of every event.
type auditRecord struct {
	Actor string `json:"actor,omitempty"`
	Data  any    `json:"data"`
}

func (s *Service) record(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	rec := auditRecord{Data: payload}
	if s.actor != nil {
		rec.Actor = s.actor(ctx)
	}
	if err := s.events.Record(ctx, typ, key, rec); err != nil {
		log.Printf("event log %s %s: %v", typ, key, err)
	}
}
