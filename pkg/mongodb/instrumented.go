package mongodb

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
)

// Observer wraps repository calls with a span, operation metrics and a debug log line
type Observer struct {
	collection string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewObserver creates an Observer for one collection. m and logger may be nil.
func NewObserver(collection string, m *metrics.Metrics, logger *logging.Logger) *Observer {
	return &Observer{
		collection: collection,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("mongodb"),
	}
}

// Observe runs fn inside a client span named after the operation
func (o *Observer) Observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.operation", operation),
			attribute.String("db.collection", o.collection),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if o.metrics != nil {
		o.metrics.RecordMongoDBOperation(o.collection, operation, err == nil, duration)
	}
	if o.logger != nil {
		o.logger.DatabaseQuery(ctx, o.collection, operation, duration, err == nil)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}
