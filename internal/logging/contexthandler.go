package logging

import (
	"context"
	"log/slog"

	"github.com/OCAP2/tactical/internal/battle"
)

// ContextProvider returns attributes computed at log time.
type ContextProvider func() []slog.Attr

// ContextHandler adds the provider's attributes to each record it handles.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle only calls the provider for records that pass the level check.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

// BattleAttrs reports the current battle name, and the tick once stepping
// has started. Nothing is added while no battle is set.
func BattleAttrs(ctx *battle.Context) ContextProvider {
	return func() []slog.Attr {
		b := ctx.GetBattle()
		if b == nil {
			return nil
		}
		attrs := []slog.Attr{slog.String("battle", b.Name)}
		if tick := ctx.Tick(); tick > 0 {
			attrs = append(attrs, slog.Uint64("tick", tick))
		}
		return attrs
	}
}
