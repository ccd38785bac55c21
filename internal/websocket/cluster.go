package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhandras/studyhall/internal/logger"
	"github.com/bhandras/studyhall/internal/metrics"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrClusterUnavailable is returned while the publish breaker is open.
var ErrClusterUnavailable = errors.New("cluster bus unavailable")

// RoomPublisher relays a room broadcast to the other nodes.
type RoomPublisher interface {
	Publish(room, event string, payload any) error
}

// MessagePublisher is the part of a NATS connection the bus publishes with.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// MessageSubscriber is the part of a NATS connection the bus listens with.
type MessageSubscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type clusterEnvelope struct {
	Node    string          `json:"node"`
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// ClusterBus relays room broadcasts between nodes over a NATS subject. Each
// node applies remote broadcasts to its local room members and ignores the
// messages it published itself.
type ClusterBus struct {
	pub     MessagePublisher
	sub     MessageSubscriber
	subject string
	nodeID  string
	apply   func(room, event string, payload any) int
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewClusterBus builds a bus over a NATS connection. apply delivers a remote
// broadcast to local members only.
func NewClusterBus(nc *nats.Conn, subject, nodeID string, apply func(room, event string, payload any) int) *ClusterBus {
	return newClusterBus(nc, nc, subject, nodeID, apply)
}

func newClusterBus(pub MessagePublisher, sub MessageSubscriber, subject, nodeID string, apply func(room, event string, payload any) int) *ClusterBus {
	metrics.ClusterBreakerState.Set(0)

	return &ClusterBus{
		pub:     pub,
		sub:     sub,
		subject: subject,
		nodeID:  nodeID,
		apply:   apply,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "nats-publish",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
				metrics.ClusterBreakerState.Set(breakerStateValue(to))
			},
		}),
	}
}

// NodeID identifies this process on the bus.
func (b *ClusterBus) NodeID() string { return b.nodeID }

// Publish sends a room broadcast to the other nodes.
func (b *ClusterBus) Publish(room, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		metrics.ClusterMessages.WithLabelValues("out", "encode_error").Inc()
		return fmt.Errorf("encode payload: %w", err)
	}
	data, err := json.Marshal(clusterEnvelope{
		Node:    b.nodeID,
		Room:    room,
		Event:   event,
		Payload: raw,
	})
	if err != nil {
		metrics.ClusterMessages.WithLabelValues("out", "encode_error").Inc()
		return fmt.Errorf("encode envelope: %w", err)
	}

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.pub.Publish(b.subject, data)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ClusterMessages.WithLabelValues("out", "breaker_open").Inc()
		return ErrClusterUnavailable
	case err != nil:
		metrics.ClusterMessages.WithLabelValues("out", "error").Inc()
		return fmt.Errorf("publish %s: %w", b.subject, err)
	}
	metrics.ClusterMessages.WithLabelValues("out", "ok").Inc()
	return nil
}

// Serve implements suture.Service. It listens until ctx is canceled.
func (b *ClusterBus) Serve(ctx context.Context) error {
	sub, err := b.sub.Subscribe(b.subject, func(msg *nats.Msg) {
		b.handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	logger.Infof("Cluster bus listening on %s as node %s", b.subject, b.nodeID)

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		logger.Debugf("Cluster bus unsubscribe: %v", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (b *ClusterBus) String() string { return "cluster-bus" }

func (b *ClusterBus) handle(data []byte) {
	var env clusterEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.ClusterMessages.WithLabelValues("in", "decode_error").Inc()
		logger.Warnf("Dropping malformed cluster message: %v", err)
		return
	}
	if env.Node == b.nodeID {
		return
	}
	if env.Room == "" || env.Event == "" {
		metrics.ClusterMessages.WithLabelValues("in", "decode_error").Inc()
		return
	}

	var payload any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			metrics.ClusterMessages.WithLabelValues("in", "decode_error").Inc()
			logger.Warnf("Dropping cluster message with bad payload: %v", err)
			return
		}
	}

	n := b.apply(env.Room, env.Event, payload)
	metrics.ClusterMessages.WithLabelValues("in", "ok").Inc()
	logger.Tracef("Relayed %s from node %s to %d local sockets in %s", env.Event, env.Node, n, env.Room)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
