package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/model"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/social"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/storage"
)

const (
	topicMeetingCreated  = "meeting.request.created.v1"
	topicMeetingAccepted = "meeting.request.accepted.v1"
	topicMeetingDeclined = "meeting.request.declined.v1"
)

type MeetingsHandler struct {
	meetings *storage.MeetingRepository
	checker  social.Checker
	outbox   *outbox.Repository
	logger   *slog.Logger
}

func NewMeetingsHandler(meetings *storage.MeetingRepository, checker social.Checker, ob *outbox.Repository, logger *slog.Logger) *MeetingsHandler {
	return &MeetingsHandler{meetings: meetings, checker: checker, outbox: ob, logger: logger}
}

func (h *MeetingsHandler) Meetings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createMeetingRequest struct {
	ReceiverID      string `json:"receiver_id"`
	IntentType      string `json:"intent_type"`
	VenueID         string `json:"venue_id"`
	ProposedTime    string `json:"proposed_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type meetingEvent struct {
	MeetingID       string `json:"meeting_id"`
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id"`
	IntentType      string `json:"intent_type"`
	VenueID         string `json:"venue_id,omitempty"`
	ProposedTime    string `json:"proposed_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

func (h *MeetingsHandler) create(w http.ResponseWriter, r *http.Request) {
	senderID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if senderID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	req.IntentType = strings.TrimSpace(req.IntentType)
	if req.IntentType == "" {
		req.IntentType = model.IntentSocial
	}

	if req.ReceiverID == "" {
		http.Error(w, "receiver_id is required", http.StatusBadRequest)
		return
	}
	if req.ReceiverID == senderID {
		http.Error(w, "cannot request a meeting with yourself", http.StatusBadRequest)
		return
	}
	if !model.ValidIntent(req.IntentType) {
		http.Error(w, "invalid intent_type", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 60
	}
	if req.DurationMinutes < 15 || req.DurationMinutes > 8*60 {
		http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
		return
	}

	var proposed *time.Time
	if s := strings.TrimSpace(req.ProposedTime); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "proposed_time must be RFC 3339", http.StatusBadRequest)
			return
		}
		utc := t.UTC()
		proposed = &utc
	}
	var venueID *string
	if v := strings.TrimSpace(req.VenueID); v != "" {
		venueID = &v
	}

	ctx := r.Context()

	connected, err := h.checker.Connected(ctx, senderID, req.ReceiverID)
	if err != nil {
		h.logger.Error("connection check failed", "err", err)
		http.Error(w, "failed to verify connection", http.StatusInternalServerError)
		return
	}
	if !connected {
		http.Error(w, "Users are not connected", http.StatusForbidden)
		return
	}

	meeting := &model.MeetingRequest{
		SenderID:        senderID,
		ReceiverID:      req.ReceiverID,
		IntentType:      req.IntentType,
		VenueID:         venueID,
		ProposedTime:    proposed,
		DurationMinutes: req.DurationMinutes,
		Status:          model.MeetingPending,
	}

	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to create meeting request", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.meetings.Create(ctx, tx, meeting)
	if err != nil {
		h.logger.Error("meeting insert failed", "err", err)
		http.Error(w, "failed to create meeting request", http.StatusInternalServerError)
		return
	}
	meeting.ID = id

	if err := h.insertEvent(ctx, tx, topicMeetingCreated, meeting); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		http.Error(w, "failed to create meeting request", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to create meeting request", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": model.MeetingPending,
	})
}

type respondMeetingRequest struct {
	MeetingID string `json:"meeting_id"`
	Action    string `json:"action"`
}

func (h *MeetingsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req respondMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	req.Action = strings.TrimSpace(req.Action)
	if req.MeetingID == "" {
		http.Error(w, "meeting_id is required", http.StatusBadRequest)
		return
	}

	var status, topic string
	switch req.Action {
	case "accept":
		status, topic = model.MeetingAccepted, topicMeetingAccepted
	case "decline":
		status, topic = model.MeetingDeclined, topicMeetingDeclined
	default:
		http.Error(w, "action must be accept or decline", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to update meeting request", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	meeting, err := h.meetings.GetForUpdate(ctx, tx, req.MeetingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update meeting request", http.StatusInternalServerError)
		return
	}

	// Only the receiver answers an invite.
	if meeting.ReceiverID != userID {
		http.Error(w, "not your meeting request", http.StatusForbidden)
		return
	}
	if meeting.Status != model.MeetingPending {
		http.Error(w, "meeting request already "+meeting.Status, http.StatusConflict)
		return
	}

	if err := h.meetings.Transition(ctx, tx, meeting.ID, status); err != nil {
		http.Error(w, "failed to update meeting request", http.StatusInternalServerError)
		return
	}
	meeting.Status = status

	if err := h.insertEvent(ctx, tx, topic, &meeting); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		http.Error(w, "failed to update meeting request", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to update meeting request", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     meeting.ID,
		"status": status,
	})
}

type cancelMeetingRequest struct {
	MeetingID string `json:"meeting_id"`
}

func (h *MeetingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req cancelMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	if req.MeetingID == "" {
		http.Error(w, "meeting_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to cancel meeting request", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	meeting, err := h.meetings.GetForUpdate(ctx, tx, req.MeetingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel meeting request", http.StatusInternalServerError)
		return
	}

	if meeting.SenderID != userID && meeting.ReceiverID != userID {
		http.Error(w, "not your meeting request", http.StatusForbidden)
		return
	}
	if meeting.Status != model.MeetingPending {
		http.Error(w, "meeting request already "+meeting.Status, http.StatusConflict)
		return
	}

	if err := h.meetings.Transition(ctx, tx, meeting.ID, model.MeetingCancelled); err != nil {
		http.Error(w, "failed to cancel meeting request", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to cancel meeting request", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     meeting.ID,
		"status": model.MeetingCancelled,
	})
}

type meetingResponse struct {
	ID              string `json:"id"`
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id"`
	IntentType      string `json:"intent_type"`
	VenueID         string `json:"venue_id,omitempty"`
	ProposedTime    string `json:"proposed_time,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

func (h *MeetingsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	meetings, err := h.meetings.ListForUser(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error("meeting list failed", "err", err)
		http.Error(w, "failed to list meeting requests", http.StatusInternalServerError)
		return
	}

	out := make([]meetingResponse, 0, len(meetings))
	for _, m := range meetings {
		resp := meetingResponse{
			ID:              m.ID,
			SenderID:        m.SenderID,
			ReceiverID:      m.ReceiverID,
			IntentType:      m.IntentType,
			DurationMinutes: m.DurationMinutes,
			Status:          m.Status,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.VenueID != nil {
			resp.VenueID = *m.VenueID
		}
		if m.ProposedTime != nil {
			resp.ProposedTime = m.ProposedTime.UTC().Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": out})
}

func (h *MeetingsHandler) insertEvent(ctx context.Context, tx pgx.Tx, topic string, m *model.MeetingRequest) error {
	evt := meetingEvent{
		MeetingID:       m.ID,
		SenderID:        m.SenderID,
		ReceiverID:      m.ReceiverID,
		IntentType:      m.IntentType,
		DurationMinutes: m.DurationMinutes,
		Status:          m.Status,
	}
	if m.VenueID != nil {
		evt.VenueID = *m.VenueID
	}
	if m.ProposedTime != nil {
		evt.ProposedTime = m.ProposedTime.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "meeting_request",
		AggregateID:   m.ID,
		EventType:     topic,
		Payload:       payload,
	})
}
