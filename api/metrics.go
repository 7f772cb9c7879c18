package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// reorderRequestMetrics collects stage timings for the bulk reorder route,
// the one request whose latency is dominated by multi-row writes.
type reorderRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	decodeDuration time.Duration
	applyDuration  time.Duration
	itemsMoved     int
	errorStage     string
}

func newReorderRequestMetrics(ctx context.Context, logger *log.Logger) (*reorderRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer("kanban-api").Start(ctx, "board.reorder")
	return &reorderRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *reorderRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *reorderRequestMetrics) ObserveDecode(d time.Duration) {
	if d > 0 {
		m.decodeDuration = d
	}
}

func (m *reorderRequestMetrics) ObserveApply(d time.Duration) {
	if d > 0 {
		m.applyDuration = d
	}
}

func (m *reorderRequestMetrics) SetItemsMoved(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsMoved = count
}

func (m *reorderRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *reorderRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("board.items_moved", m.itemsMoved),
		)
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}
	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":       "/projects/:id/items/reorder",
		"status":      status,
		"total_ms":    durationToMillis(time.Since(m.start)),
		"items_moved": m.itemsMoved,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("reorder.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
