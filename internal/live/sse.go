package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// EventNewMessage is the named SSE event carrying a freshly persisted message.
const EventNewMessage = "new_message"

const keepaliveInterval = 25 * time.Second

// SSEHandler returns the handler for GET /api/messages/live/{userID}. It
// holds the response open, registers the user in the registry, and streams
// pushed events in Server-Sent Events format until the client goes away or
// the subscription is replaced.
func SSEHandler(registry *Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			http.Error(w, "missing user id", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		sub := registry.Register(userID)
		defer registry.Unregister(sub)
		logger.Info("sse: stream opened", "user_id", userID)

		// Initial event so the client can confirm connectivity.
		fmt.Fprintf(w, "event: log\ndata: connected\n\n")
		flusher.Flush()

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				logger.Info("sse: stream closed", "user_id", userID)
				return
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case ev, open := <-sub.C:
				if !open {
					// replaced by a newer connection
					logger.Info("sse: stream superseded", "user_id", userID)
					return
				}
				data, err := json.Marshal(ev.Data)
				if err != nil {
					logger.Error("sse: marshal event", "user_id", userID, "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
				flusher.Flush()
			}
		}
	}
}
