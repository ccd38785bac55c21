package notify

import (
	"context"
	"testing"

	"github.com/bhandras/studyhall/internal/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func rawJSON(s string) json.RawMessage { return json.RawMessage(s) }

func TestNotifyNewEnrollment(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store, nil)

	n, err := d.NotifyNewEnrollment(context.Background(), 3,
		Course{ID: 10, Title: "Go Basics"}, Person{ID: 42, Name: "Alice"}, "")
	require.NoError(t, err)
	d.Wait()

	require.Equal(t, models.TypeNewEnrollment, n.Type)
	require.Equal(t, int64(3), n.UserID)
	require.Contains(t, n.Message, "Alice")
	require.Contains(t, n.Message, "Go Basics")

	var data map[string]any
	require.NoError(t, json.Unmarshal(store.rows[0].Data, &data))
	require.Equal(t, "free", data["enrollment_type"])
	require.Equal(t, float64(42), data["student_id"])
}

func TestNotifyPaymentWrappers(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store, nil)
	course := Course{ID: 1, Title: "SQL"}
	payment := Payment{ID: 9, Amount: 199000}

	n, err := d.NotifyNewPayment(context.Background(), 2, course, Person{ID: 5, Name: "Bo"}, payment)
	require.NoError(t, err)
	require.Equal(t, models.TypeNewPayment, n.Type)

	n, err = d.NotifyPaymentConfirmed(context.Background(), 5, course, payment)
	require.NoError(t, err)
	require.Equal(t, models.TypePaymentConfirmed, n.Type)
	d.Wait()

	var confirmed map[string]any
	require.NoError(t, json.Unmarshal(store.rows[1].Data, &confirmed))
	require.NotContains(t, confirmed, "student_id")
	require.Equal(t, float64(199000), confirmed["amount"])
}

func TestNotifyFriendWrappers(t *testing.T) {
	d := newTestDispatcher(&fakeStore{}, nil)

	n, err := d.NotifyFriendRequest(context.Background(), 1, Person{ID: 2, Name: "Cy"})
	require.NoError(t, err)
	require.Equal(t, models.TypeFriendRequest, n.Type)

	n, err = d.NotifyFriendAccepted(context.Background(), 2, Person{ID: 1, Name: "Di"})
	require.NoError(t, err)
	require.Equal(t, models.TypeFriendAccepted, n.Type)
	require.Contains(t, n.Message, "Di")

	n, err = d.NotifySystem(context.Background(), 2, "Maintenance", "Tonight", nil)
	require.NoError(t, err)
	require.Empty(t, n.Data)
	d.Wait()
}
