package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/config"
	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/libs/httpx"
	"github.com/abidoyedimeji-cell/dana/libs/kafkax"
	otelx "github.com/abidoyedimeji-cell/dana/libs/otel"
	"github.com/abidoyedimeji-cell/dana/libs/runtime"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/consumer"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/email"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/inbox"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/storage"
	"github.com/abidoyedimeji-cell/dana/services/notification-service/internal/templates"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	topicInviteCreated   = "booking.invite.created.v1"
	topicInviteAccepted  = "booking.invite.accepted.v1"
	topicInviteDeclined  = "booking.invite.declined.v1"
	topicInviteCancelled = "booking.invite.cancelled.v1"
	topicMeetingCreated  = "meeting.request.created.v1"
	topicMeetingAccepted = "meeting.request.accepted.v1"
	topicMeetingDeclined = "meeting.request.declined.v1"
)

// Booking and meeting events carry user IDs only; recipient addresses
// are resolved against the users table at send time.
type bookingEvent struct {
	BookingID     string            `json:"booking_id"`
	InviterID     string            `json:"inviter_id"`
	InviteeID     string            `json:"invitee_id"`
	VenueID       string            `json:"venue_id"`
	ScheduledTime string            `json:"scheduled_time"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason"`
	RefundPence   int64             `json:"refund_pence"`
	RefundMessage string            `json:"refund_message"`
	PromoCodes    map[string]string `json:"promo_codes"`
}

type meetingEvent struct {
	MeetingID       string `json:"meeting_id"`
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id"`
	IntentType      string `json:"intent_type"`
	VenueID         string `json:"venue_id"`
	ProposedTime    string `json:"proposed_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

type delivery struct {
	SubjectID string
	EventType string
	UserID    string
	Subject   string
	Body      string
	Payload   map[string]any
}

func writeOutboxSent(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, d delivery, recipient string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventPayload, err := json.Marshal(map[string]any{
		"subject_id": d.SubjectID,
		"event_type": d.EventType,
		"channel":    "email",
		"recipient":  recipient,
		"sent_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   d.SubjectID,
		EventType:     "notification.sent.v1",
		Payload:       eventPayload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func writeOutboxFailed(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, d delivery, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventPayload, err := json.Marshal(map[string]any{
		"subject_id":   d.SubjectID,
		"event_type":   d.EventType,
		"channel":      "email",
		"error_reason": reason,
		"failed_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   d.SubjectID,
		EventType:     "notification.failed.v1",
		Payload:       eventPayload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@dana.app")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	failSuffix := config.String("NOTIFICATION_FAIL_SUFFIX", "")

	deliver := func(ctx context.Context, d delivery) error {
		recipient, _, err := notificationsRepo.RecipientFor(ctx, d.UserID)
		if err != nil {
			if storage.IsNotFound(err) {
				logger.Warn("recipient not found, skipping", "user_id", d.UserID, "event_type", d.EventType)
				return nil
			}
			return err
		}

		status := "sent"
		failureReason := ""
		if failSuffix != "" && strings.HasSuffix(recipient, failSuffix) {
			status = "failed"
			failureReason = "simulated failure"
		}

		if status == "sent" {
			if err := emailSender.Send(recipient, d.Subject, d.Body); err != nil {
				status = "failed"
				failureReason = err.Error()
				logger.Error("email send failed", "err", err, "recipient", recipient)
			}
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			BookingID: d.SubjectID,
			EventType: d.EventType,
			Channel:   "email",
			Recipient: recipient,
			Payload:   d.Payload,
			Status:    status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		if status == "failed" {
			if err := writeOutboxFailed(ctx, pool, outboxRepo, d, failureReason); err != nil {
				logger.Error("failed to enqueue notification.failed", "err", err)
				return err
			}
		} else {
			if err := writeOutboxSent(ctx, pool, outboxRepo, d, recipient); err != nil {
				logger.Error("failed to enqueue notification.sent", "err", err)
				return err
			}
		}

		logger.Info("notification processed", "subject_id", d.SubjectID, "event_type", d.EventType, "status", status)
		return nil
	}

	displayName := func(ctx context.Context, userID string) string {
		_, name, err := notificationsRepo.RecipientFor(ctx, userID)
		if err != nil {
			return ""
		}
		return name
	}

	handleBooking := func(ctx context.Context, topic string, msg kafka.Message) error {
		var ev bookingEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", topic)
			return nil
		}
		if ev.BookingID == "" || ev.InviterID == "" || ev.InviteeID == "" {
			logger.Error("missing booking event fields", "topic", topic)
			return nil
		}
		payload := map[string]any{
			"booking_id":     ev.BookingID,
			"status":         ev.Status,
			"scheduled_time": ev.ScheduledTime,
		}

		switch topic {
		case topicInviteCreated:
			subject, body := templates.InviteCreated(displayName(ctx, ev.InviterID), ev.ScheduledTime)
			return deliver(ctx, delivery{
				SubjectID: ev.BookingID, EventType: topic, UserID: ev.InviteeID,
				Subject: subject, Body: body, Payload: payload,
			})
		case topicInviteAccepted:
			subject, body := templates.InviteConfirmed(displayName(ctx, ev.InviteeID), ev.ScheduledTime, ev.PromoCodes[ev.InviterID])
			if err := deliver(ctx, delivery{
				SubjectID: ev.BookingID, EventType: topic, UserID: ev.InviterID,
				Subject: subject, Body: body, Payload: payload,
			}); err != nil {
				return err
			}
			subject, body = templates.InviteConfirmed(displayName(ctx, ev.InviterID), ev.ScheduledTime, ev.PromoCodes[ev.InviteeID])
			return deliver(ctx, delivery{
				SubjectID: ev.BookingID, EventType: topic, UserID: ev.InviteeID,
				Subject: subject, Body: body, Payload: payload,
			})
		case topicInviteDeclined:
			subject, body := templates.InviteDeclined(ev.Reason)
			return deliver(ctx, delivery{
				SubjectID: ev.BookingID, EventType: topic, UserID: ev.InviterID,
				Subject: subject, Body: body, Payload: payload,
			})
		case topicInviteCancelled:
			subject, body := templates.InviteCancelled(ev.RefundMessage)
			for _, userID := range []string{ev.InviterID, ev.InviteeID} {
				if err := deliver(ctx, delivery{
					SubjectID: ev.BookingID, EventType: topic, UserID: userID,
					Subject: subject, Body: body, Payload: payload,
				}); err != nil {
					return err
				}
			}
			return nil
		}
		logger.Error("unsupported booking topic", "topic", topic)
		return nil
	}

	handleMeeting := func(ctx context.Context, topic string, msg kafka.Message) error {
		var ev meetingEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Error("invalid meeting event payload", "err", err, "topic", topic)
			return nil
		}
		if ev.MeetingID == "" || ev.SenderID == "" || ev.ReceiverID == "" {
			logger.Error("missing meeting event fields", "topic", topic)
			return nil
		}
		payload := map[string]any{
			"meeting_id":  ev.MeetingID,
			"intent_type": ev.IntentType,
			"status":      ev.Status,
		}

		switch topic {
		case topicMeetingCreated:
			subject, body := templates.MeetingRequested(displayName(ctx, ev.SenderID), ev.IntentType)
			return deliver(ctx, delivery{
				SubjectID: ev.MeetingID, EventType: topic, UserID: ev.ReceiverID,
				Subject: subject, Body: body, Payload: payload,
			})
		case topicMeetingAccepted:
			subject, body := templates.MeetingAccepted(displayName(ctx, ev.ReceiverID))
			return deliver(ctx, delivery{
				SubjectID: ev.MeetingID, EventType: topic, UserID: ev.SenderID,
				Subject: subject, Body: body, Payload: payload,
			})
		case topicMeetingDeclined:
			subject, body := templates.MeetingDeclined(displayName(ctx, ev.ReceiverID))
			return deliver(ctx, delivery{
				SubjectID: ev.MeetingID, EventType: topic, UserID: ev.SenderID,
				Subject: subject, Body: body, Payload: payload,
			})
		}
		logger.Error("unsupported meeting topic", "topic", topic)
		return nil
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	topics := []string{
		topicInviteCreated, topicInviteAccepted, topicInviteDeclined, topicInviteCancelled,
		topicMeetingCreated, topicMeetingAccepted, topicMeetingDeclined,
	}
	for _, topic := range topics {
		topic := topic
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			if strings.HasPrefix(topic, "meeting.") {
				return handleMeeting(ctx, topic, msg)
			}
			return handleBooking(ctx, topic, msg)
		})
		go eventConsumer.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
