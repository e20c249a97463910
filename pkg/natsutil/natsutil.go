// Package natsutil provides typed NATS publish/subscribe/request helpers
// with OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Conn is the subset of *nats.Conn used here.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	RequestMsgWithContext(ctx context.Context, m *nats.Msg) (*nats.Msg, error)
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

var _ Conn = (*nats.Conn)(nil)

// encode marshals v into a message on subject carrying ctx's trace context.
func encode[T any](ctx context.Context, subject string, v T) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// Publish serializes v as JSON and publishes to the given subject.
func Publish[T any](ctx context.Context, nc Conn, subject string, v T) error {
	msg, err := encode(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Malformed messages are dropped.
func Subscribe[T any](nc Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, v)
	})
}

// ErrorReply is sent back by Respond when the request cannot be decoded or
// the handler fails.
type ErrorReply struct {
	Error string `json:"error"`
}

// Respond serves request/reply traffic on subject. Each request is decoded as
// Req and the handler result is sent back as JSON; decode or handler errors
// are replied as ErrorReply. Up to workers handlers run at once; further
// requests wait in the subscription until one finishes. timeout bounds each
// handler call (0 = none).
func Respond[Req, Resp any](nc Conn, subject string, workers int, timeout time.Duration, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		if msg.Reply == "" {
			return
		}
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			serve(nc, msg, timeout, handler)
		}()
	})
}

func serve[Req, Resp any](nc Conn, msg *nats.Msg, timeout time.Duration, handler func(context.Context, Req) (Resp, error)) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply := func(v any) {
		out, err := encode(ctx, msg.Reply, v)
		if err != nil {
			return
		}
		nc.PublishMsg(out)
	}

	var req Req
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		reply(ErrorReply{Error: "invalid JSON in request body"})
		return
	}
	resp, err := handler(ctx, req)
	if err != nil {
		reply(ErrorReply{Error: err.Error()})
		return
	}
	reply(resp)
}

// Request sends a JSON-encoded request and decodes the response. The deadline
// comes from ctx; without one nats.DefaultTimeout applies. An ErrorReply from
// the responder is returned as an error.
func Request[Req, Resp any](ctx context.Context, nc Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}
	msg, err := encode(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, err
	}
	var remote ErrorReply
	if json.Unmarshal(resp.Data, &remote) == nil && remote.Error != "" {
		return zero, fmt.Errorf("%s: %s", subject, remote.Error)
	}
	var result Resp
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return zero, err
	}
	return result, nil
}
