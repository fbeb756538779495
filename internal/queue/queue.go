package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

const (
	// StreamScoring carries score requests (CLI and API push, scorer pops).
	StreamScoring = "assessment_scoring"
	// StreamNotifications carries founder notification verdicts (scorer pushes, notifier pops).
	StreamNotifications = "founder_notifications"

	// GroupScorer is the consumer group for scoring workers.
	GroupScorer = "scorer_pool"
	// GroupNotifier is the consumer group for the notification collaborator.
	GroupNotifier = "notifier_pool"
)

// ScoreRequest asks for a re-evaluation of one assessment.
type ScoreRequest struct {
	AssessmentID string    `json:"assessment_id"`
	Reason       string    `json:"reason,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Notification is the verdict handed to the notification collaborator.
type Notification struct {
	AssessmentID  string              `json:"assessment_id"`
	CompanyID     string              `json:"company_id"`
	UrgencyLevel  assess.UrgencyLevel `json:"urgency_level"`
	CriticalCount int                 `json:"critical_count"`
	GapIDs        []string            `json:"gap_ids"`
	Domains       []assess.DomainID   `json:"domains"`
	EvaluatedAt   time.Time           `json:"evaluated_at"`
}

// Delivery is a message read from a stream with the id needed to ack it.
type Delivery[T any] struct {
	ID      string
	Message T
}

// Queue manages the Redis streams between the CLI, the scorer and the notifier.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStreams creates the consumer groups if they don't exist.
func (q *Queue) EnsureStreams(ctx context.Context) error {
	for _, pair := range []struct {
		stream, group string
	}{
		{StreamScoring, GroupScorer},
		{StreamNotifications, GroupNotifier},
	} {
		err := q.client.XGroupCreateMkStream(ctx, pair.stream, pair.group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", pair.group, pair.stream, err)
		}
	}
	return nil
}

// PushScore adds a score request to the scoring stream.
func (q *Queue) PushScore(ctx context.Context, req ScoreRequest) (string, error) {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamScoring,
		Values: scoreValues(req),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("push score request: %w", err)
	}
	return id, nil
}

// ReadScores reads up to count score requests, waiting at most block.
// It returns no deliveries and no error when the wait times out.
func (q *Queue) ReadScores(ctx context.Context, consumer string, count int64, block time.Duration) ([]Delivery[ScoreRequest], error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupScorer,
		Consumer: consumer,
		Streams:  []string{StreamScoring, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read score requests: %w", err)
	}

	var out []Delivery[ScoreRequest]
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			out = append(out, Delivery[ScoreRequest]{ID: msg.ID, Message: parseScore(msg.Values)})
		}
	}
	return out, nil
}

// AckScores acknowledges score requests.
func (q *Queue) AckScores(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return q.client.XAck(ctx, StreamScoring, GroupScorer, ids...).Err()
}

// PushNotification adds a verdict to the notification stream.
func (q *Queue) PushNotification(ctx context.Context, n Notification) (string, error) {
	values, err := notificationValues(n)
	if err != nil {
		return "", err
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamNotifications,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("push notification: %w", err)
	}
	return id, nil
}

// RecentNotifications lists up to count notifications, newest first, without consuming them.
func (q *Queue) RecentNotifications(ctx context.Context, count int64) ([]Delivery[Notification], error) {
	msgs, err := q.client.XRevRangeN(ctx, StreamNotifications, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]Delivery[Notification], 0, len(msgs))
	for _, msg := range msgs {
		n, err := parseNotification(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("notification %s: %w", msg.ID, err)
		}
		out = append(out, Delivery[Notification]{ID: msg.ID, Message: n})
	}
	return out, nil
}

// Status returns the length of both streams.
func (q *Queue) Status(ctx context.Context) (scoring, notifications int64, err error) {
	scoring, err = q.client.XLen(ctx, StreamScoring).Result()
	if err != nil {
		return 0, 0, err
	}
	notifications, err = q.client.XLen(ctx, StreamNotifications).Result()
	if err != nil {
		return 0, 0, err
	}
	return scoring, notifications, nil
}

// Pending returns the number of delivered but unacknowledged score requests.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	p, err := q.client.XPending(ctx, StreamScoring, GroupScorer).Result()
	if err != nil {
		return 0, fmt.Errorf("pending score requests: %w", err)
	}
	return p.Count, nil
}

func scoreValues(req ScoreRequest) map[string]any {
	return map[string]any{
		"assessment_id": req.AssessmentID,
		"reason":        req.Reason,
		"requested_at":  req.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseScore(values map[string]any) ScoreRequest {
	req := ScoreRequest{
		AssessmentID: getString(values, "assessment_id"),
		Reason:       getString(values, "reason"),
	}
	if t, err := time.Parse(time.RFC3339Nano, getString(values, "requested_at")); err == nil {
		req.RequestedAt = t
	}
	return req
}

func notificationValues(n Notification) (map[string]any, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return map[string]any{
		"assessment_id": n.AssessmentID,
		"urgency_level": string(n.UrgencyLevel),
		"payload":       string(payload),
	}, nil
}

func parseNotification(values map[string]any) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(getString(values, "payload")), &n); err != nil {
		return n, fmt.Errorf("unmarshal payload: %w", err)
	}
	return n, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
