package httpserver

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"pingup_go/internal/domain"
	"pingup_go/internal/service"
)

type sendMessageRequest struct {
	ToUserID string `json:"to_user_id"`
	Text     string `json:"text"`
}

type historyRequest struct {
	ToUserID string `json:"to_user_id"`
	Limit    int    `json:"limit"`
	Before   int64  `json:"before"`
}

type markSeenRequest struct {
	FromUserID string `json:"from_user_id"`
}

// handleSendMessage accepts either a JSON body or a multipart form with an
// optional "image" file. Both representations are parsed into the same
// SendInput before any logic runs.
func handleSendMessage(msgSvc *service.MessageService, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		in, ok := parseSendInput(w, r, maxUploadBytes)
		if !ok {
			return
		}

		msg, err := msgSvc.Send(r.Context(), currentUser.ID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
	}
}

func parseSendInput(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) (service.SendInput, bool) {
	var in service.SendInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
			return in, false
		}
		in.ToUserID = r.FormValue("to_user_id")
		in.Text = r.FormValue("text")

		file, header, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
			if err != nil || int64(len(data)) > maxUploadBytes {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image too large"})
				return in, false
			}
			in.Media = &service.MediaInput{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		} else if err != http.ErrMissingFile {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image field"})
			return in, false
		}
		return in, true
	}

	var req sendMessageRequest
	if err := decodeStrict(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return in, false
	}
	in.ToUserID = req.ToUserID
	in.Text = req.Text
	return in, true
}

func handleHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req historyRequest
		if err := decodeStrict(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msgs, err := msgSvc.History(r.Context(), currentUser.ID, req.ToUserID, req.Before, req.Limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}

func handleRecentConversations(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convs, err := msgSvc.RecentConversations(r.Context(), currentUser.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
	}
}

func handleMarkSeen(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req markSeenRequest
		if err := decodeStrict(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		n, err := msgSvc.MarkSeen(r.Context(), currentUser.ID, req.FromUserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"modified_count": n})
	}
}
