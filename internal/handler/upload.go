// Package handler exposes the HTTP surface next to the websocket: blob
// upload/fetch and the read-only status endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/vaporchat/vapor/internal/blob"
	"github.com/vaporchat/vapor/internal/ratelimit"
)

type uploadResponse struct {
	BlobID      string `json:"blob_id"`
	URL         string `json:"url"`
	ExpiresInMs int64  `json:"expires_in_ms"`
}

// Upload accepts a multipart "file" field, enforces the size ceiling
// before storage and applies the per-origin upload cooldown.
func Upload(blobs *blob.Store, cooldown *ratelimit.Cooldown) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()

		// Guard the transport with some multipart headroom; the store's
		// own ceiling check stays authoritative.
		r.Body = http.MaxBytesReader(w, r.Body, blobs.MaxBytes()+(64<<10))

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				tooLargeResponse(w, blobs.MaxBytes())
				return
			}
			http.Error(w, "expected a multipart 'file' field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				tooLargeResponse(w, blobs.MaxBytes())
				return
			}
			log.Printf("failed to read upload body: %v", err)
			http.Error(w, "failed to read upload", http.StatusBadRequest)
			return
		}

		if int64(len(data)) > blobs.MaxBytes() {
			tooLargeResponse(w, blobs.MaxBytes())
			return
		}

		// The cooldown tracks accepted uploads only, so a rejected one
		// must never charge it. Check it after validation.
		if !cooldown.Allow(ratelimit.ClientIP(r), now) {
			http.Error(w, "upload cooldown active, try again shortly", http.StatusTooManyRequests)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		id, err := blobs.Put(data, mimeType, header.Filename, now)
		if err != nil {
			if errors.Is(err, blob.ErrTooLarge) {
				tooLargeResponse(w, blobs.MaxBytes())
				return
			}
			log.Printf("failed to store blob: %v", err)
			http.Error(w, "failed to store upload", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, uploadResponse{
			BlobID:      id,
			URL:         "/blob/" + id,
			ExpiresInMs: blobs.TTL().Milliseconds(),
		})
	}
}

func tooLargeResponse(w http.ResponseWriter, maxBytes int64) {
	http.Error(w,
		fmt.Sprintf("file exceeds the %d byte ceiling", maxBytes),
		http.StatusRequestEntityTooLarge)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
