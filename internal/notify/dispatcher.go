// Package notify persists notifications and pushes them to the recipient's
// live sockets.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bhandras/studyhall/internal/auth"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/metrics"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/goccy/go-json"
)

// EventNotification is the socket event carrying a live notification.
const EventNotification = "notification"

// ErrPersistenceFailed matches every DispatchError caused by the store.
var ErrPersistenceFailed = errors.New("notification persistence failed")

// Reason classifies a dispatch failure.
type Reason string

const ReasonPersistenceFailed Reason = "PersistenceFailed"

// DispatchError is returned when a notification could not be created.
type DispatchError struct {
	Reason Reason
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed (%s): %v", e.Reason, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistenceFailed) match persistence failures.
func (e *DispatchError) Is(target error) bool {
	return target == ErrPersistenceFailed && e.Reason == ReasonPersistenceFailed
}

// Store persists notifications.
type Store interface {
	CreateNotification(ctx context.Context, arg models.CreateNotificationParams) (models.Notification, error)
}

// Deliverer reaches the live sockets of a room.
type Deliverer interface {
	EmitToRoom(room, event string, payload any) int
}

// Payload is the body of the notification event.
type Payload struct {
	ID        int64                   `json:"id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Data      any                     `json:"data"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt string                  `json:"created_at"`
	Timestamp string                  `json:"timestamp"`
}

type delivererBox struct {
	Deliverer
}

// Dispatcher creates notifications and delivers them on a detached
// goroutine.
type Dispatcher struct {
	store     Store
	deliverer atomic.Pointer[delivererBox]
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewDispatcher builds a dispatcher over store. Until Attach is called every
// notification is stored only.
func NewDispatcher(store Store, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{store: store, now: now}
}

// Attach sets the live transport. Passing nil detaches it.
func (d *Dispatcher) Attach(deliverer Deliverer) {
	if deliverer == nil {
		d.deliverer.Store(nil)
		return
	}
	d.deliverer.Store(&delivererBox{deliverer})
}

// Dispatch persists a notification for recipientID and then, without
// waiting, pushes it to the recipient's personal room. Only persistence
// failures are returned.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	recipientID int64,
	typ models.NotificationType,
	title, message string,
	data any,
) (models.Notification, error) {
	raw, err := encodeData(data)
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(typ), "invalid").Inc()
		return models.Notification{}, fmt.Errorf("encode notification data: %w", err)
	}

	n, err := d.store.CreateNotification(ctx, models.CreateNotificationParams{
		UserID:    recipientID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      raw,
		CreatedAt: d.now(),
	})
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(typ), "persistence_failed").Inc()
		logger.Errorf("Failed to create %s notification for user %d: %v", typ, recipientID, err)
		return models.Notification{}, &DispatchError{Reason: ReasonPersistenceFailed, Err: err}
	}
	metrics.NotificationsDispatched.WithLabelValues(string(typ), "ok").Inc()
	logger.Debugf("Notification %d (%s) created for user %d", n.ID, typ, recipientID)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(n)
	}()

	return n, nil
}

func (d *Dispatcher) deliver(n models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationDeliveries.WithLabelValues("panic").Inc()
			logger.Errorf("Notification %d delivery panicked: %v", n.ID, r)
		}
	}()

	box := d.deliverer.Load()
	if box == nil {
		metrics.NotificationDeliveries.WithLabelValues("no_transport").Inc()
		logger.Infof("Live transport not attached; notification %d stored only", n.ID)
		return
	}

	room := auth.NumericSubject(n.UserID).Room()
	sent := box.EmitToRoom(room, EventNotification, newPayload(n, d.now()))
	if sent == 0 {
		metrics.NotificationDeliveries.WithLabelValues("offline").Inc()
		logger.Debugf("No local sockets in %s; user %d may be offline", room, n.UserID)
		return
	}
	metrics.NotificationDeliveries.WithLabelValues("delivered").Inc()
	logger.Debugf("Notification %d emitted to %s (%d sockets)", n.ID, room, sent)
}

// Wait blocks until every pending delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func newPayload(n models.Notification, now time.Time) Payload {
	p := Payload{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    false,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
	if len(n.Data) > 0 {
		var data any
		if err := json.Unmarshal(n.Data, &data); err == nil {
			p.Data = data
		}
	}
	return p
}

func encodeData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(v) > 0 && !json.Valid(v) {
			return nil, errors.New("invalid JSON")
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}
