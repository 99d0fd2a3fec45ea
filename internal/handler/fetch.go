package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaporchat/vapor/internal/blob"
)

// FetchBlob streams a stored blob back with its original mime type and
// name. Expired and unknown ids are indistinguishable.
func FetchBlob(blobs *blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		b, err := blobs.Fetch(id, time.Now().UTC())
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				http.Error(w, "blob not found or expired", http.StatusNotFound)
				return
			}
			log.Printf("failed to fetch blob [%s]: %v", id, err)
			http.Error(w, "failed to fetch blob", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", b.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", b.Name))
		if _, err := w.Write(b.Data); err != nil {
			log.Printf("failed to write blob [%s]: %v", id, err)
		}
	}
}
