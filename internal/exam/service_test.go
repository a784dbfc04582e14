package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []Response
	fails bool
}

func (f *fakeNotifier) NotifyScore(_ context.Context, _ Test, r Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
	if f.fails {
		return errors.New("telegram down")
	}
	return nil
}

type recordedEvent struct {
	typ, key string
	payload  any
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(_ context.Context, typ, key string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{typ, key, payload})
	return nil
}

// blockingNotifier holds every notification until release is closed or its context ends.
type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	errs    []error
}

func (f *blockingNotifier) NotifyScore(ctx context.Context, _ Test, _ Response) error {
	var err error
	select {
	case <-f.release:
	case <-ctx.Done():
		err = ctx.Err()
	}
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
	return err
}

type fakePurger struct{ purged []string }

func (f *fakePurger) PurgeArchive(_ context.Context, testID string) error {
	f.purged = append(f.purged, testID)
	return nil
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *SQLStore) {
	t.Helper()
	store := newTestStore(t)
	fixed := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	opts = append([]ServiceOption{WithClock(func() time.Time { return fixed })}, opts...)
	return NewService(store, opts...), store
}

func submission(testID, telegramID, answers string) Submission {
	return Submission{
		TestID:     testID,
		TelegramID: telegramID,
		FirstName:  "Ali",
		LastName:   "Valiyev",
		Region:     "Samarkand",
		Answers:    answers,
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		offset, limit int
		want          ListOpts
	}{
		{0, 100, ListOpts{0, 100}},
		{-5, -1, ListOpts{0, DefaultLimit}},
		{10, 5000, ListOpts{10, MaxLimit}},
		{3, 0, ListOpts{3, 0}},
	}
	for _, c := range cases {
		if got := NormalizePage(c.offset, c.limit); got != c.want {
			t.Errorf("NormalizePage(%d,%d) = %+v, want %+v", c.offset, c.limit, got, c.want)
		}
	}
}

func TestService_CreateTestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	got, err := svc.CreateTest(ctx, Test{TestID: " t-1 ", Answers: "ABCD"})
	if err != nil {
		t.Fatal(err)
	}
	if got.TestID != "t-1" || got.Status != "inactive" {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("clock not used: %v", got.CreatedAt)
	}

	bad := []Test{
		{TestID: "", Answers: "A"},
		{TestID: "has space", Answers: "A"},
		{TestID: "a/b", Answers: "A"},
		{TestID: "ok", Answers: ""},
		{TestID: "ok", Answers: "A", Status: "much-too-long"},
	}
	for _, b := range bad {
		if _, err := svc.CreateTest(ctx, b); !errors.Is(err, ErrInvalidTest) {
			t.Errorf("CreateTest(%+v): expected ErrInvalidTest, got %v", b, err)
		}
	}
	if _, err := svc.CreateTest(ctx, Test{TestID: "t-1", Answers: "A"}); !errors.Is(err, ErrTestExists) {
		t.Fatalf("expected ErrTestExists, got %v", err)
	}
}

func TestService_SubmitScoresAndNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	events := &fakeRecorder{}
	svc, _ := newTestService(t, WithNotifier(notifier), WithEvents(events))
	ctx := context.Background()

	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "ABCD"}); err != nil {
		t.Fatal(err)
	}
	r, err := svc.Submit(ctx, submission("t1", "1001", "ABXD"))
	if err != nil {
		t.Fatal(err)
	}
	svc.Wait()
	if r.Score != 3.3 {
		t.Fatalf("score = %v, want 3.3", r.Score)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].TelegramID != "1001" {
		t.Fatalf("notifier calls: %+v", notifier.sent)
	}

	var keys []string
	for _, e := range events.events {
		keys = append(keys, e.typ+":"+e.key)
	}
	want := []string{"TestCreated:t1", "ResponseSubmitted:t1_answers"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("events = %v, want %v", keys, want)
	}
}

func TestService_SubmitCheckOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "ABCD"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, submission("t1", "7", "ABCD")); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		sub  Submission
		want error
	}{
		{"missing region", func() Submission { s := submission("t1", "8", "ABCD"); s.Region = ""; return s }(), ErrInvalidSubmission},
		{"telegram id too long", submission("t1", "123456789012345678901", "ABCD"), ErrInvalidSubmission},
		{"unknown test", submission("nope", "8", "ABCD"), ErrTestNotFound},
		// duplicate wins over a wrong length
		{"duplicate before length", submission("t1", "7", "AB"), ErrDuplicateSubmitter},
		{"short answers", submission("t1", "8", "ABC"), ErrAnswerLength},
		{"long answers", submission("t1", "8", "ABCDE"), ErrAnswerLength},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, c.sub)
			if !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestService_SubmitLengthMessage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "ABCD"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Submit(ctx, submission("t1", "9", "ABC"))
	want := "Answer length (3) doesn't match test requirements (4)"
	if err == nil || err.Error() != want {
		t.Fatalf("got %v, want %q", err, want)
	}
}

func TestService_NotifierFailureKeepsResponse(t *testing.T) {
	notifier := &fakeNotifier{fails: true}
	svc, store := newTestService(t, WithNotifier(notifier))
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, submission("t1", "5", "AB")); err != nil {
		t.Fatalf("notify failure must not fail submit: %v", err)
	}
	svc.Wait()
	if seen, _ := store.SubmitterExists(ctx, "t1", "5"); !seen {
		t.Fatal("response was not stored")
	}
}

func TestService_SubmitDoesNotWaitForNotifier(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{})}
	svc, store := newTestService(t, WithNotifier(notifier), WithNotifyTimeout(time.Minute))
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, submission("t1", "5", "AB"))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		close(notifier.release)
		t.Fatal("Submit blocked on the notifier")
	}
	if seen, _ := store.SubmitterExists(ctx, "t1", "5"); !seen {
		t.Fatal("response was not stored")
	}
	close(notifier.release)
	svc.Wait()
	if len(notifier.errs) != 1 || notifier.errs[0] != nil {
		t.Fatalf("notifications = %v", notifier.errs)
	}
}

func TestService_NotifyTimeout(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{})}
	defer close(notifier.release)
	svc, _ := newTestService(t, WithNotifier(notifier), WithNotifyTimeout(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, submission("t1", "5", "AB")); err != nil {
		t.Fatal(err)
	}
	// the request ending does not cancel the notification; the timeout does
	cancel()
	svc.Wait()
	if len(notifier.errs) != 1 || !errors.Is(notifier.errs[0], context.DeadlineExceeded) {
		t.Fatalf("notifications = %v", notifier.errs)
	}
}

func TestService_RecordsActor(t *testing.T) {
	events := &fakeRecorder{}
	type actorKey struct{}
	svc, _ := newTestService(t, WithEvents(events), WithActor(func(ctx context.Context) string {
		name, _ := ctx.Value(actorKey{}).(string)
		return name
	}))
	ctx := context.WithValue(context.Background(), actorKey{}, "admin")
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}
	if len(events.events) != 1 {
		t.Fatalf("events = %+v", events.events)
	}
	rec, ok := events.events[0].payload.(auditRecord)
	if !ok || rec.Actor != "admin" {
		t.Fatalf("payload = %#v", events.events[0].payload)
	}
	if created, ok := rec.Data.(Test); !ok || created.TestID != "t1" {
		t.Fatalf("data = %#v", rec.Data)
	}
}

func TestService_ConcurrentDuplicateSubmit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, submission("t1", "77", "AB"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateSubmitter):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d submissions accepted, want 1", ok)
	}
	rows, err := store.ListResponses(ctx, "t1", ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("%d rows stored, want 1", len(rows))
	}
}

func TestService_RankedAndStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "ABCD"}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Ranked(ctx, "t1"); !errors.Is(err, ErrRelationNotFound) {
		t.Fatalf("expected ErrRelationNotFound before any submission, got %v", err)
	}
	if _, _, err := svc.Ranked(ctx, "nope"); !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}

	for id, answers := range map[string]string{"1": "ABCD", "2": "AXXX", "3": "ABXX"} {
		if _, err := svc.Submit(ctx, submission("t1", id, answers)); err != nil {
			t.Fatal(err)
		}
	}

	test, rows, err := svc.Ranked(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if test.TestID != "t1" || len(rows) != 3 {
		t.Fatalf("unexpected ranked result: %+v %d", test, len(rows))
	}
	if rows[0].TelegramID != "1" || rows[1].TelegramID != "3" || rows[2].TelegramID != "2" {
		t.Fatalf("ranked order wrong: %s %s %s", rows[0].TelegramID, rows[1].TelegramID, rows[2].TelegramID)
	}

	st, err := svc.Stats(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Responses != 3 || st.MaxScore != 4.4 || st.MinScore != 1.1 || st.AvgScore != 2.57 || st.MaxPossible != 4.4 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestService_DeleteTest(t *testing.T) {
	events := &fakeRecorder{}
	purger := &fakePurger{}
	svc, _ := newTestService(t, WithEvents(events), WithArchive(purger))
	ctx := context.Background()
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, submission("t1", "1", "AB")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTest(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetTest(ctx, "t1"); !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound after delete, got %v", err)
	}
	if err := svc.DeleteTest(ctx, "t1"); !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
	if len(purger.purged) != 1 || purger.purged[0] != "t1" {
		t.Fatalf("purged = %v, want [t1]", purger.purged)
	}

	// the id is free again and starts with an empty relation
	if _, err := svc.CreateTest(ctx, Test{TestID: "t1", Answers: "AB"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(ctx, submission("t1", "1", "AB")); err != nil {
		t.Fatalf("resubmit after recreate: %v", err)
	}
	last := events.events[len(events.events)-1]
	if last.typ != "ResponseSubmitted" {
		t.Fatalf("last event = %+v", last)
	}
}
