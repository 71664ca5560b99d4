// Package queue implements the asynchronous email channel over a Redis list.
// The API enqueues JSON tasks; the mailworker binary consumes them. Delivery
// is at-least-once: a failed send is pushed back onto the queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task types carried on the queue.
const TaskVerificationEmail = "verification_email"

// Task is the wire format of one queued job.
type Task struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Code int    `json:"code"`
}

// NewRedisClient configures a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Publisher pushes tasks onto the queue. It implements the orchestrator's
// notification port.
type Publisher struct {
	client *redis.Client
	key    string
}

func NewPublisher(client *redis.Client, key string) *Publisher {
	return &Publisher{client: client, key: key}
}

func (p *Publisher) EnqueueVerificationEmail(ctx context.Context, email string, code int) error {
	payload, err := json.Marshal(Task{Type: TaskVerificationEmail, To: email, Code: code})
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := p.client.LPush(ctx, p.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Mailer sends emails. Satisfied by the smtp package.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Worker drains the queue and delivers emails.
type Worker struct {
	client *redis.Client
	key    string
	mailer Mailer
}

func NewWorker(client *redis.Client, key string, mailer Mailer) *Worker {
	return &Worker{client: client, key: key, mailer: mailer}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("mail worker started", "queue", w.key)
	for {
		res, err := w.client.BRPop(ctx, 5*time.Second, w.key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("queue read failed", "err", err)
			continue
		}
		// BRPop returns [key, value].
		w.process(ctx, []byte(res[1]))
	}
}

// ProcessOne pops and handles a single task without blocking.
// Returns false when the queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	payload, err := w.client.RPop(ctx, w.key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dequeue task: %w", err)
	}
	w.process(ctx, payload)
	return true, nil
}

func (w *Worker) process(ctx context.Context, payload []byte) {
	var task Task
	if err := json.Unmarshal(payload, &task); err != nil {
		slog.Warn("dropping malformed task", "err", err)
		return
	}
	if task.Type != TaskVerificationEmail {
		slog.Warn("dropping task of unknown type", "type", task.Type)
		return
	}
	subject := "Confirm your account"
	body := fmt.Sprintf("Your verification code is %06d. It expires in a few minutes.", task.Code)
	if err := w.mailer.SendEmail(task.To, subject, body); err != nil {
		slog.Warn("send failed, re-enqueueing task", "to", task.To, "err", err)
		if rerr := w.client.LPush(ctx, w.key, payload).Err(); rerr != nil {
			slog.Error("could not re-enqueue task", "to", task.To, "err", rerr)
		}
		return
	}
	slog.Info("verification email sent", "to", task.To)
}
