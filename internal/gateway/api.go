// ABOUTME: HTTP API handlers for bot scheduling, cancellation, and media delivery
// ABOUTME: JSON endpoints guarded by bearer-token auth, plus an open health check

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/notefold/notetaker/internal/auth"
	"github.com/notefold/notetaker/internal/store"
)

// BotResponse is the JSON representation of a bot returned by the API.
type BotResponse struct {
	ID          string `json:"id"`
	MeetingID   string `json:"meeting_id"`
	Status      string `json:"status"`
	JoinAt      string `json:"join_at"`
	LeadMinutes int    `json:"lead_minutes"`
}

func botResponse(bot *store.Bot) BotResponse {
	return BotResponse{
		ID:          bot.ID,
		MeetingID:   bot.MeetingID,
		Status:      string(bot.Status),
		JoinAt:      bot.JoinAt.UTC().Format(time.RFC3339),
		LeadMinutes: bot.LeadMinutes,
	}
}

func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", g.handleHealth)

	authed := auth.Middleware(g.verifier)
	mux.Handle("POST /api/meetings/{id}/bot", authed(http.HandlerFunc(g.handleScheduleBot)))
	mux.Handle("DELETE /api/meetings/{id}/bot", authed(http.HandlerFunc(g.handleCancelBot)))
	mux.Handle("GET /api/meetings/{id}/bot", authed(http.HandlerFunc(g.handleGetBot)))
	mux.Handle("GET /api/bots/{id}/media/{kind}", authed(http.HandlerFunc(g.handleMedia)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := g.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScheduleBot requests a recording bot for a meeting. Responds 202
// with the bot (existing or new), or 204 when scheduling is not applicable.
func (g *Gateway) handleScheduleBot(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")

	meeting, err := g.store.GetMeeting(r.Context(), meetingID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		g.logger.Error("loading meeting", "meeting_id", meetingID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading meeting failed")
		return
	}

	bot, err := g.scheduler.Schedule(r.Context(), meeting)
	if err != nil {
		g.logger.Error("scheduling bot", "meeting_id", meetingID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "scheduling bot failed")
		return
	}
	if bot == nil {
		// No join URL or the meeting already started: nothing to schedule.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusAccepted, botResponse(bot))
}

func (g *Gateway) handleCancelBot(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	if err := g.scheduler.Cancel(r.Context(), meetingID); err != nil {
		g.logger.Error("cancelling bot", "meeting_id", meetingID, "error", err)
		writeError(w, http.StatusInternalServerError, "cancelling bot failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleGetBot(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	bot, err := g.store.GetBotByMeeting(r.Context(), meetingID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no bot for meeting")
		return
	}
	if err != nil {
		g.logger.Error("loading bot", "meeting_id", meetingID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading bot failed")
		return
	}
	writeJSON(w, http.StatusOK, botResponse(bot))
}

// handleMedia streams a captured artifact's bytes to the caller. The
// optional content_type query parameter overrides the fallback content type
// when upstream omits one.
func (g *Gateway) handleMedia(w http.ResponseWriter, r *http.Request) {
	botID := r.PathValue("id")
	kind := store.ArtifactKind(r.PathValue("kind"))

	valid := false
	for _, k := range store.ArtifactKinds {
		if kind == k {
			valid = true
			break
		}
	}
	if !valid {
		writeError(w, http.StatusBadRequest, "unknown artifact kind")
		return
	}

	artifact, err := g.store.GetArtifact(r.Context(), botID, kind)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		g.logger.Error("loading artifact", "bot_id", botID, "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "loading artifact failed")
		return
	}

	g.proxy.ServeArtifact(w, r, artifact, r.URL.Query().Get("content_type"))
}
