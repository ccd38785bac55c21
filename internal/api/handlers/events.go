package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bhandras/studyhall/internal/api/middleware"
	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/models"
	"github.com/bhandras/studyhall/internal/notify"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/gin-gonic/gin"
)

// EventNotifier turns domain events into notifications.
type EventNotifier interface {
	NotifyNewEnrollment(ctx context.Context, creatorID int64, course notify.Course, student notify.Person, enrollmentType string) (models.Notification, error)
	NotifyPaymentConfirmed(ctx context.Context, studentID int64, course notify.Course, payment notify.Payment) (models.Notification, error)
	NotifyNewPayment(ctx context.Context, creatorID int64, course notify.Course, student notify.Person, payment notify.Payment) (models.Notification, error)
	NotifyFriendRequest(ctx context.Context, recipientID int64, from notify.Person) (models.Notification, error)
	NotifyFriendAccepted(ctx context.Context, recipientID int64, by notify.Person) (models.Notification, error)
}

var errMissingField = errors.New("missing field")

// staffRoles may trigger events on behalf of another user.
var staffRoles = map[string]bool{"instructor": true, "admin": true}

type EventsHandler struct {
	notifier EventNotifier
}

func NewEventsHandler(notifier EventNotifier) *EventsHandler {
	return &EventsHandler{notifier: notifier}
}

// Create handles POST /v1/events/:kind.
func (h *EventsHandler) Create(c *gin.Context) {
	var req types.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	// Students always act as themselves; staff may name the actor.
	var (
		actor   notify.Person
		trusted bool
	)
	if id, ok := middleware.GetIdentity(c); ok {
		actor = notify.Person{ID: id.User.ID, Name: id.User.Name}
		trusted = staffRoles[id.User.Role]
	}
	person := func(p *types.PersonRef) notify.Person {
		if p == nil || !trusted {
			return actor
		}
		return notify.Person{ID: p.ID, Name: p.Name}
	}

	ctx := c.Request.Context()
	kind := c.Param("kind")

	var (
		n   models.Notification
		err error
	)
	switch kind {
	case "enrollment":
		if req.Course == nil {
			err = errMissingField
			break
		}
		n, err = h.notifier.NotifyNewEnrollment(ctx, req.RecipientID, course(req.Course), person(req.Student), req.EnrollmentType)
	case "payment-confirmed":
		if req.Course == nil || req.Payment == nil {
			err = errMissingField
			break
		}
		n, err = h.notifier.NotifyPaymentConfirmed(ctx, req.RecipientID, course(req.Course), payment(req.Payment))
	case "new-payment":
		if req.Course == nil || req.Payment == nil {
			err = errMissingField
			break
		}
		n, err = h.notifier.NotifyNewPayment(ctx, req.RecipientID, course(req.Course), person(req.Student), payment(req.Payment))
	case "friend-request":
		n, err = h.notifier.NotifyFriendRequest(ctx, req.RecipientID, person(req.From))
	case "friend-accepted":
		n, err = h.notifier.NotifyFriendAccepted(ctx, req.RecipientID, person(req.From))
	default:
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "unknown event kind"})
		return
	}

	switch {
	case errors.Is(err, errMissingField):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "event " + kind + " is missing required fields"})
	case errors.Is(err, notify.ErrPersistenceFailed):
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to create notification", Type: string(notify.ReasonPersistenceFailed)})
	case err != nil:
		logger.Warnf("Event %s rejected: %v", kind, err)
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"success": true, "notification": n})
	}
}

func course(c *types.CourseRef) notify.Course {
	return notify.Course{ID: c.ID, Title: c.Title}
}

func payment(p *types.PaymentRef) notify.Payment {
	return notify.Payment{ID: p.ID, Amount: p.Amount}
}

