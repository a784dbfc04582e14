package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/mind-engage/testcheck/internal/exam"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// BotLink is the Telegram deep link that opens the bot on a test.
func BotLink(botUsername, testID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, url.QueryEscape(testID))
}

// GET /tests/{id}/qr?size=256
func QRHandler(svc *exam.Service, botUsername string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if botUsername == "" {
			respondDetail(w, http.StatusServiceUnavailable, "telegram bot username not configured")
			return
		}
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			testLookupError(w, r, err)
			return
		}
		size := parseIntDefault(r.URL.Query().Get("size"), defaultQRSize)
		if size < 64 || size > maxQRSize {
			size = defaultQRSize
		}
		link := BotLink(botUsername, t.TestID)
		png, err := qrcode.Encode(link, qrcode.Medium, size)
		if err != nil {
			internalError(w, r, "Failed to generate QR code", err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("X-Test-Link", link)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
