package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clinic-backoffice/config"
	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/usecase"
	"clinic-backoffice/pkg/response"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const pollReadTimeout = 5 * time.Second

type FeedHandler struct {
	feed usecase.FeedUsecase
	cfg  config.FeedConfig
	log  *logrus.Logger
}

func NewFeedHandler(feed usecase.FeedUsecase, cfg config.FeedConfig, log *logrus.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, cfg: cfg, log: log}
}

// Days serves one clinic's ledger either as a cached snapshot or, when the
// stream flag or an SSE Accept header is present, as a long-lived event
// stream.
func (h *FeedHandler) Days(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	clinicID, err := strconv.ParseUint(query.Get("clinic_id"), 10, 32)
	if err != nil {
		response.DomainError(w, http.StatusBadRequest, response.CodeValidation, "Invalid clinic_id")
		return
	}

	// SSE clients commonly send composite Accept values
	// ("text/event-stream, */*"), so match on containment.
	streaming := query.Get("stream") == "1" || query.Get("stream") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
	if streaming {
		h.stream(w, r, uint(clinicID))
		return
	}

	params := make(map[string]string, len(query))
	for name := range query {
		params[name] = query.Get(name)
	}
	snapshot, err := h.feed.Snapshot(r.Context(), queueKind(r), uint(clinicID), params)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Ledger snapshot", snapshot)
}

// stream re-reads the ledger on every poll interval, bypassing the cache with
// a short-lived read per poll, and emits an update only when the content hash
// changes. Heartbeats tick independently of data; the stream says bye after
// its wall-clock budget and expects the client to reconnect.
func (h *FeedHandler) stream(w http.ResponseWriter, r *http.Request, clinicID uint) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming unsupported")
		return
	}

	kind := queueKind(r)
	query := r.URL.Query()
	poll := boundedSeconds(query.Get("poll_interval"), h.cfg.PollInterval, time.Second, 30*time.Second)
	heartbeat := boundedSeconds(query.Get("heartbeat"), h.cfg.HeartbeatInterval, 5*time.Second, time.Minute)
	timeout := boundedSeconds(query.Get("timeout"), h.cfg.StreamTimeout, 30*time.Second, 15*time.Minute)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	streamID := uuid.New().String()
	h.log.Infof("Feed stream opened: id=%s clinic=%d kind=%s", streamID, clinicID, kind)

	lastHash := ""
	if snapshot, err := h.readOnce(r.Context(), kind, clinicID); err != nil {
		writeEvent(w, flusher, "error", map[string]string{"message": "ledger read failed"})
	} else {
		lastHash = snapshot.Hash
		writeEvent(w, flusher, "snapshot", snapshot)
	}

	pollTicker := time.NewTicker(poll)
	defer pollTicker.Stop()
	heartbeatTicker := time.NewTicker(heartbeat)
	defer heartbeatTicker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Infof("Feed stream disconnected: id=%s", streamID)
			return
		case <-deadline.C:
			writeEvent(w, flusher, "bye", map[string]int64{"ts": time.Now().Unix()})
			h.log.Infof("Feed stream expired: id=%s", streamID)
			return
		case <-heartbeatTicker.C:
			writeEvent(w, flusher, "ping", map[string]int64{"ts": time.Now().Unix()})
		case <-pollTicker.C:
			snapshot, err := h.readOnce(r.Context(), kind, clinicID)
			if err != nil {
				writeEvent(w, flusher, "error", map[string]string{"message": "ledger read failed"})
				continue
			}
			if snapshot.Hash != lastHash {
				lastHash = snapshot.Hash
				writeEvent(w, flusher, "update", snapshot)
			}
		}
	}
}

// readOnce gives each poll its own short-lived read so a slow client never
// pins a store handle.
func (h *FeedHandler) readOnce(ctx context.Context, kind entity.QueueKind, clinicID uint) (*dto.FeedSnapshot, error) {
	readCtx, cancel := context.WithTimeout(ctx, pollReadTimeout)
	defer cancel()
	return h.feed.ReadLive(readCtx, kind, clinicID)
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// boundedSeconds parses a whole-second query override and clamps it. Anything
// unparseable falls back to the configured default, which the operator owns
// and which is therefore not clamped.
func boundedSeconds(raw string, fallback, min, max time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	d := time.Duration(n) * time.Second
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
