package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/testcheck/internal/exam"
	"github.com/mind-engage/testcheck/internal/storage"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "", "xlsx", "excel" and "pdf".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Ranker yields a test and its responses, best score first.
type Ranker interface {
	Ranked(ctx context.Context, testID string) (exam.Test, []exam.Response, error)
}

// Row is one line of the results table.
type Row struct {
	No    int
	Name  string // "first last (region)"
	Score float64
}

// File is a rendered export ready to be downloaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	ArchiveURL  string // empty unless the copy was archived
}

type Exporter struct {
	src      Ranker
	archive  storage.BlobStore
	now      func() time.Time
	fontPath string
}

type Option func(*Exporter)

// WithArchive stores a copy of every export under exports/{testId}/.
func WithArchive(b storage.BlobStore) Option { return func(e *Exporter) { e.archive = b } }
func WithClock(now func() time.Time) Option  { return func(e *Exporter) { e.now = now } }

// WithPDFFont sets a TTF used for PDF output so non Latin-1 names render.
func WithPDFFont(path string) Option { return func(e *Exporter) { e.fontPath = path } }

func New(src Ranker, opts ...Option) *Exporter {
	e := &Exporter{src: src, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Filename is test_results_{testId}_{YYYYMMDD}.{ext}.
func Filename(testID string, f Format, at time.Time) string {
	return fmt.Sprintf("test_results_%s_%s.%s", testID, at.Format("20060102"), f)
}

// Rows numbers ranked responses from 1.
func Rows(ranked []exam.Response) []Row {
	out := make([]Row, 0, len(ranked))
	for i, r := range ranked {
		out = append(out, Row{
			No:    i + 1,
			Name:  fmt.Sprintf("%s %s (%s)", r.FirstName, r.LastName, r.Region),
			Score: r.Score,
		})
	}
	return out
}

// Export renders the ranked results of testID. It returns exam.ErrTestNotFound
// or exam.ErrRelationNotFound when there is nothing to export.
func (e *Exporter) Export(ctx context.Context, testID string, f Format) (File, error) {
	t, ranked, err := e.src.Ranked(ctx, testID)
	if err != nil {
		return File{}, err
	}
	rows := Rows(ranked)

	var data []byte
	switch f {
	case FormatPDF:
		data, err = renderPDF(t, rows, e.fontPath)
	default:
		f = FormatXLSX
		data, err = renderXLSX(rows)
	}
	if err != nil {
		return File{}, fmt.Errorf("render %s export of %s: %w", f, testID, err)
	}

	out := File{Name: Filename(testID, f, e.now()), ContentType: f.ContentType(), Data: data}
	out.ArchiveURL = e.store(ctx, testID, out)
	return out, nil
}

func archivePrefix(testID string) string { return "exports/" + testID + "/" }

// store archives f and returns its URL. Archive failures are logged only.
func (e *Exporter) store(ctx context.Context, testID string, f File) string {
	if e.archive == nil {
		return ""
	}
	key := archivePrefix(testID) + uuid.NewString() + "_" + f.Name
	stored, err := e.archive.Put(ctx, key, bytes.NewReader(f.Data))
	if err != nil {
		log.Printf("archive export %s: %v", key, err)
		return ""
	}
	return e.archive.URL(stored)
}

// PurgeArchive removes every archived export of testID.
func (e *Exporter) PurgeArchive(ctx context.Context, testID string) error {
	if e.archive == nil {
		return nil
	}
	n, err := e.archive.DeletePrefix(ctx, archivePrefix(testID))
	if err != nil {
		return fmt.Errorf("purge exports of %s: %w", testID, err)
	}
	if n > 0 {
		log.Printf("purged %d archived exports of %s", n, testID)
	}
	return nil
}
