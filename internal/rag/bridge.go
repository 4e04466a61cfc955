package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrConsumerGone wraps a failure returned by the Emitter.
var ErrConsumerGone = errors.New("stream consumer gone")

var errEmptyStream = errors.New("stream produced no text")

// Increment is one element of an upstream answer stream. Providers set either
// Delta (new text only) or Response (the whole answer so far).
type Increment struct {
	Delta    string
	Response string
}

// Emitter receives answer text in upstream order.
type Emitter func(chunk string) error

// StreamChat streams a grounded answer into emit. If the upstream stream fails
// for any reason other than cancellation, the same messages are sent once more
// without streaming and the whole answer is emitted as a single final chunk.
func (g *Generator) StreamChat(ctx context.Context, req Request, emit Emitter) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := otel.Tracer("rag").Start(ctx, "rag.StreamChat")
	defer span.End()
	span.SetAttributes(attribute.String("kind", req.Kind))

	messages, err := g.buildMessages(ctx, req)
	if err != nil {
		g.observe(req.Kind, "error")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	sr, err := g.openStream(ctx, messages)
	if err == nil {
		err = Relay(ctx, sr, emit)
		if err == nil {
			g.observe(req.Kind, "ok")
			return nil
		}
	}

	if errors.Is(err, ErrConsumerGone) {
		g.observe(req.Kind, "canceled")
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		g.observe(req.Kind, "canceled")
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrUpstream, ctxErr)
		}
		return ctxErr
	}

	g.logger.Warn("chat stream failed, falling back to full response", zap.String("kind", req.Kind), zap.Error(err))
	g.metrics.StreamFallback()
	span.AddEvent("fallback")

	res, ferr := g.complete(ctx, messages)
	if ferr != nil {
		g.observe(req.Kind, outcomeOf(ferr))
		span.SetStatus(codes.Error, ferr.Error())
		return ferr
	}
	if err := emit(res.Content); err != nil {
		g.observe(req.Kind, "canceled")
		return fmt.Errorf("%w: %w", ErrConsumerGone, err)
	}
	g.observe(req.Kind, "fallback")
	return nil
}

func (g *Generator) openStream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[Increment], error) {
	sr, err := g.chat.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return schema.StreamReaderWithConvert(sr, func(m *schema.Message) (Increment, error) {
		if m == nil {
			return Increment{}, schema.ErrNoValue
		}
		return Increment{Delta: m.Content}, nil
	}), nil
}

// Relay forwards increments to emit as they arrive, emitting only text not
// already sent. It always closes sr.
func Relay(ctx context.Context, sr *schema.StreamReader[Increment], emit Emitter) error {
	defer sr.Close()

	var sent strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		inc, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			if sent.Len() == 0 {
				return fmt.Errorf("%w: %w", ErrUpstream, errEmptyStream)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUpstream, err)
		}

		text := nextText(sent.String(), inc)
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return fmt.Errorf("%w: %w", ErrConsumerGone, err)
		}
		sent.WriteString(text)
	}
}

func nextText(sent string, inc Increment) string {
	if inc.Response != "" && strings.HasPrefix(inc.Response, sent) {
		return inc.Response[len(sent):]
	}
	return inc.Delta
}
