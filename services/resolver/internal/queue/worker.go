// Package queue consumes resolve jobs from NATS JetStream and publishes the
// outcome of each one.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

const (
	SubjectResolve  = "jobs.resolve"
	SubjectResolved = "data.media_resolved"

	streamJobs    = "RESOLVE"
	streamResults = "MEDIA"
	durable       = "resolver-workers"
	dedupKind     = "job"
)

// Job asks for one link to be resolved.
type Job struct {
	RequestID string `json:"request_id"`
	URL       string `json:"url"`
}

// Reply is published on SubjectResolved for every job.
type Reply struct {
	RequestID string        `json:"request_id"`
	Success   bool          `json:"success"`
	Strategy  string        `json:"strategy,omitempty"`
	Result    *media.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type Resolver interface {
	ResolveWithID(ctx context.Context, requestID, raw string) (*media.Resolution, error)
}

// Claimer marks request ids as taken. *dedup.Deduplicator implements it.
type Claimer interface {
	Claim(ctx context.Context, kind, id string) (bool, error)
	Release(ctx context.Context, kind, id string) error
}

// Publisher is the JetStream publish call.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

type Worker struct {
	resolver Resolver
	claims   Claimer
	pub      Publisher
	log      zerolog.Logger
	// JobTimeout bounds one resolve.
	JobTimeout time.Duration
}

// NewWorker builds a worker. claims may be nil, which disables redelivery dedup.
func NewWorker(r Resolver, claims Claimer, pub Publisher, log zerolog.Logger) *Worker {
	return &Worker{
		resolver:   r,
		claims:     claims,
		pub:        pub,
		log:        log.With().Str("component", "queue").Logger(),
		JobTimeout: 2 * time.Minute,
	}
}

var errBadJob = errors.New("malformed job")

// Handle processes one message body. A nil error means the message can be
// acked; errBadJob means it should be terminated; anything else is a retry.
func (w *Worker) Handle(ctx context.Context, data []byte) error {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil || job.URL == "" {
		return errBadJob
	}
	if job.RequestID == "" {
		job.RequestID = uuid.NewString()
	}
	log := w.log.With().Str("request_id", job.RequestID).Logger()

	if w.claims != nil {
		ok, err := w.claims.Claim(ctx, dedupKind, job.RequestID)
		if err != nil {
			log.Warn().Err(err).Msg("claim job, processing anyway")
		} else if !ok {
			log.Info().Msg("job already handled, skipping")
			return nil
		}
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.JobTimeout)
	defer cancel()

	reply := Reply{RequestID: job.RequestID}
	res, err := w.resolver.ResolveWithID(jobCtx, job.RequestID, job.URL)
	if err != nil && ctx.Err() != nil {
		// Shutdown, not a verdict on the link. Leave the job for redelivery.
		return w.unclaim(ctx, job.RequestID, fmt.Errorf("worker stopping: %w", ctx.Err()))
	}
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Success = true
		reply.Strategy = res.Strategy
		reply.Result = &res.Result
	}

	body, err := json.Marshal(reply)
	if err != nil {
		return w.unclaim(ctx, job.RequestID, fmt.Errorf("marshal reply: %w", err))
	}
	if _, err := w.pub.Publish(SubjectResolved, body); err != nil {
		return w.unclaim(ctx, job.RequestID, fmt.Errorf("publish reply: %w", err))
	}
	log.Debug().Bool("success", reply.Success).Msg("reply published")
	return nil
}

func (w *Worker) unclaim(ctx context.Context, id string, cause error) error {
	if w.claims != nil {
		if err := w.claims.Release(context.WithoutCancel(ctx), dedupKind, id); err != nil {
			w.log.Warn().Err(err).Str("request_id", id).Msg("release claim")
		}
	}
	return cause
}

// EnsureStreams creates the job and result streams; existing ones are kept.
func EnsureStreams(js nats.JetStreamContext, log zerolog.Logger) {
	for name, subject := range map[string]string{streamJobs: SubjectResolve, streamResults: SubjectResolved} {
		_, err := js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			log.Warn().Err(err).Str("stream", name).Msg("add stream")
		}
	}
}

// Run pulls jobs with n concurrent fetchers until ctx is done.
func Run(ctx context.Context, js nats.JetStreamContext, w *Worker, n int) error {
	sub, err := js.PullSubscribe(SubjectResolve, durable, nats.AckWait(w.JobTimeout+30*time.Second))
	if err != nil {
		return fmt.Errorf("pull subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	if n <= 0 {
		n = 1
	}
	w.log.Info().Int("workers", n).Str("subject", SubjectResolve).Msg("worker consuming")

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, sub, id)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

func (w *Worker) loop(ctx context.Context, sub *nats.Subscription, id int) {
	log := w.log.With().Int("worker", id).Logger()
	for ctx.Err() == nil {
		msgs, err := sub.Fetch(1, nats.MaxWait(10*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			log.Warn().Err(err).Msg("fetch")
			time.Sleep(2 * time.Second)
			continue
		}
		for _, msg := range msgs {
			w.settle(ctx, msg, log)
		}
	}
}

func (w *Worker) settle(ctx context.Context, msg *nats.Msg, log zerolog.Logger) {
	err := w.Handle(ctx, msg.Data)
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, errBadJob):
		log.Warn().Bytes("data", msg.Data).Msg("dropping malformed job")
		_ = msg.Term()
	default:
		log.Warn().Err(err).Msg("job failed, will be redelivered")
		_ = msg.Nak()
	}
}

// Enqueue publishes a resolve job and returns its request id.
func Enqueue(js nats.JetStreamContext, url string) (string, error) {
	job := Job{RequestID: uuid.NewString(), URL: url}
	body, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if _, err := js.Publish(SubjectResolve, body); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return job.RequestID, nil
}
