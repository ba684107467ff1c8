// Package broker wraps a NATS JetStream connection into the Producer-
// and Worker-facing Broker component described in spec §4 and §6:
// durable publish with header-carried retry metadata, and a
// prefetch=1 pull consumer (spec §4.4 concurrency: "one message in
// flight per Worker at a time").
//
// Grounded on the teacher's internal/workers/publishers package
// (publish-with-backoff loop, trace-context header injection) and
// internal/workers/runner.go (BindStream pull subscription, Fetch
// loop, ack/nak).
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	publishMinRetryInterval = 500 * time.Millisecond
	publishMaxRetries       = 5
	fetchMaxWait            = 5 * time.Second
)

// Broker is the durable queue used by Producer to publish tasks and by
// Worker to consume them (spec §6: "Queue name: configurable, default
// search_queue. Durable queue, no DLX required").
type Broker struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger
	tracer trace.Tracer
	stream string
	queue  string
}

// New builds a Broker and ensures its backing JetStream stream exists,
// creating it if absent.
func New(nc *nats.Conn, stream, queue string, logger zerolog.Logger, tracer trace.Tracer) (*Broker, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{queue},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", stream, err)
		}
	}

	return &Broker{
		conn:   nc,
		js:     js,
		logger: logger,
		tracer: tracer,
		stream: stream,
		queue:  queue,
	}, nil
}

// Queue returns the subject tasks are published to and consumed from.
func (b *Broker) Queue() string { return b.queue }

// Publish sends a freshly-created task (retry_count=0) onto the queue,
// injecting the active trace context into NATS headers so a Worker can
// continue the same trace (spec §6, teacher's Publisher.PublishNATSMessage).
func (b *Broker) Publish(ctx context.Context, env Envelope) error {
	return b.publish(ctx, env, baseHeaders(env, 0))
}

// Republish re-sends env with retryCount incremented, used by the
// Worker's in-band retry path (spec §4.4: "republish with
// retry_count+1 and ack the original").
func (b *Broker) Republish(ctx context.Context, env Envelope, retryCount int) error {
	return b.publish(ctx, env, baseHeaders(env, retryCount))
}

func (b *Broker) publish(ctx context.Context, env Envelope, headers nats.Header) error {
	sCtx, span := b.tracer.Start(ctx, "broker.publish",
		trace.WithAttributes(
			attribute.String("subject", b.queue),
			attribute.String("task_id", env.TaskID.String()),
		))
	defer span.End()

	otel.GetTextMapPropagator().Inject(sCtx, propagation.HeaderCarrier(headers))

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	retry := 0
	_, err = b.js.PublishMsg(&nats.Msg{
		Subject: b.queue,
		Data:    data,
		Header:  headers,
	})
	for err != nil && retry < publishMaxRetries {
		sleep := min(10*time.Second, publishMinRetryInterval*(1<<retry))
		b.logger.Warn().
			Err(err).
			Int("retry", retry).
			Str("subject", b.queue).
			Dur("sleep", sleep).
			Msg("failed to publish message, retrying")
		time.Sleep(sleep)
		retry++
		_, err = b.js.PublishMsg(&nats.Msg{
			Subject: b.queue,
			Data:    data,
			Header:  headers,
		})
	}

	if err != nil {
		return ec.ErrTransientUpstream.Clone().
			Warp(err).
			WithDetails(fmt.Sprintf("publish failed after %d retries", publishMaxRetries))
	}
	return nil
}

// Consumer is a prefetch=1 durable pull consumer over the Broker's
// queue (spec §4.4/§5: one message in flight per Worker).
type Consumer struct {
	sub    *nats.Subscription
	tracer trace.Tracer
}

// NewConsumer creates (or binds to) a durable pull consumer named
// durable for this Broker's queue, with MaxAckPending(1) enforcing
// single-flight delivery.
func (b *Broker) NewConsumer(durable string) (*Consumer, error) {
	sub, err := b.js.PullSubscribe(b.queue, durable,
		nats.BindStream(b.stream),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxAckPending(1),
		nats.DeliverNew(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull subscription: %w", err)
	}
	return &Consumer{sub: sub, tracer: b.tracer}, nil
}

// Fetch blocks until one message is available or fetchMaxWait elapses.
// A nats.ErrTimeout is not an error condition for callers: it means
// "no message right now", matching the Runner's Fetch-loop pattern.
func (c *Consumer) Fetch() (*nats.Msg, error) {
	msgs, err := c.sub.Fetch(1, nats.MaxWait(fetchMaxWait))
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nats.ErrTimeout
	}
	return msgs[0], nil
}

// ExtractContext pulls the propagated trace context out of msg's
// headers, resuming the Producer's span.
func (c *Consumer) ExtractContext(ctx context.Context, msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Header))
}

// Unsubscribe tears down the pull subscription on graceful shutdown.
func (c *Consumer) Unsubscribe() error {
	return c.sub.Unsubscribe()
}

// Connected reports broker connection liveness, used by the health
// endpoint (spec §6: GET /api/health services.broker).
func (b *Broker) Connected() bool {
	return b.conn.IsConnected()
}
