package trace

import "context"

type ctxKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx; nil attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// SpanContext is what nested spans inherit: the innermost open span and the
// world (one document set with its font catalog) the work belongs to.
type SpanContext struct {
	SpanID uint64
	World  string
}

type spanCtxKey struct{}

// CurrentSpan returns the span context of ctx, zero if none.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanCtxKey{}).(SpanContext)
	return sc
}

// WithSpanContext replaces the span context of ctx.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanCtxKey{}, sc)
}

// WithWorld tags every span started under the returned context with world.
func WithWorld(ctx context.Context, world string) context.Context {
	sc := CurrentSpan(ctx)
	sc.World = world
	return WithSpanContext(ctx, sc)
}

// StartSpan begins a span under the current one of ctx and returns a context
// in which the new span is current. The world of ctx, if any, lands in the
// span's "world" extra.
func StartSpan(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	sc := CurrentSpan(ctx)
	span := Begin(FromContext(ctx), scope, name, sc.SpanID)
	if sc.World != "" {
		span.WithExtra("world", sc.World)
	}
	if span.ID() != 0 {
		sc.SpanID = span.ID()
	}
	return span, WithSpanContext(ctx, sc)
}
