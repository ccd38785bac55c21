package notify

import (
	"context"
	"fmt"

	"github.com/bhandras/studyhall/internal/models"
)

// Course identifies the course an event is about.
type Course struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Person identifies the user that triggered an event.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Payment identifies a payment awaiting or past confirmation.
type Payment struct {
	ID     int64   `json:"id"`
	Amount float64 `json:"amount"`
}

type enrollmentData struct {
	CourseID       int64  `json:"course_id"`
	StudentID      int64  `json:"student_id"`
	EnrollmentType string `json:"enrollment_type"`
	CourseTitle    string `json:"course_title"`
	StudentName    string `json:"student_name"`
}

type paymentData struct {
	CourseID    int64   `json:"course_id"`
	StudentID   int64   `json:"student_id,omitempty"`
	PaymentID   int64   `json:"payment_id"`
	CourseTitle string  `json:"course_title"`
	StudentName string  `json:"student_name,omitempty"`
	Amount      float64 `json:"amount"`
}

type friendData struct {
	FromUserID int64  `json:"from_user_id"`
	FromName   string `json:"from_name"`
}

// NotifyNewEnrollment tells a course creator that a student enrolled.
// enrollmentType is "free" or "paid".
func (d *Dispatcher) NotifyNewEnrollment(ctx context.Context, creatorID int64, course Course, student Person, enrollmentType string) (models.Notification, error) {
	if enrollmentType == "" {
		enrollmentType = "free"
	}
	return d.Dispatch(ctx, creatorID, models.TypeNewEnrollment,
		"New student enrolled",
		fmt.Sprintf("%s enrolled in the course %q", student.Name, course.Title),
		enrollmentData{
			CourseID:       course.ID,
			StudentID:      student.ID,
			EnrollmentType: enrollmentType,
			CourseTitle:    course.Title,
			StudentName:    student.Name,
		},
	)
}

// NotifyPaymentConfirmed tells a student their payment was accepted.
func (d *Dispatcher) NotifyPaymentConfirmed(ctx context.Context, studentID int64, course Course, payment Payment) (models.Notification, error) {
	return d.Dispatch(ctx, studentID, models.TypePaymentConfirmed,
		"Payment confirmed",
		fmt.Sprintf("Your payment for the course %q has been confirmed. You can start learning now!", course.Title),
		paymentData{
			CourseID:    course.ID,
			PaymentID:   payment.ID,
			CourseTitle: course.Title,
			Amount:      payment.Amount,
		},
	)
}

// NotifyNewPayment asks a course creator to confirm a bank transfer.
func (d *Dispatcher) NotifyNewPayment(ctx context.Context, creatorID int64, course Course, student Person, payment Payment) (models.Notification, error) {
	return d.Dispatch(ctx, creatorID, models.TypeNewPayment,
		"New payment awaiting confirmation",
		fmt.Sprintf("%s sent a transfer for the course %q. Please check and confirm it.", student.Name, course.Title),
		paymentData{
			CourseID:    course.ID,
			StudentID:   student.ID,
			PaymentID:   payment.ID,
			CourseTitle: course.Title,
			StudentName: student.Name,
			Amount:      payment.Amount,
		},
	)
}

// NotifyFriendRequest tells a user someone wants to be their friend.
func (d *Dispatcher) NotifyFriendRequest(ctx context.Context, recipientID int64, from Person) (models.Notification, error) {
	return d.Dispatch(ctx, recipientID, models.TypeFriendRequest,
		"New friend request",
		fmt.Sprintf("%s sent you a friend request", from.Name),
		friendData{FromUserID: from.ID, FromName: from.Name},
	)
}

// NotifyFriendAccepted tells a user their friend request was accepted.
func (d *Dispatcher) NotifyFriendAccepted(ctx context.Context, recipientID int64, by Person) (models.Notification, error) {
	return d.Dispatch(ctx, recipientID, models.TypeFriendAccepted,
		"Friend request accepted",
		fmt.Sprintf("%s accepted your friend request", by.Name),
		friendData{FromUserID: by.ID, FromName: by.Name},
	)
}

// NotifySystem sends a free-form system notification.
func (d *Dispatcher) NotifySystem(ctx context.Context, recipientID int64, title, message string, data any) (models.Notification, error) {
	return d.Dispatch(ctx, recipientID, models.TypeSystem, title, message, data)
}
