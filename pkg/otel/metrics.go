package otel

import (
	"errors"

	"go.opentelemetry.io/otel/metric"
)

type HistoryMetrics struct {
	Aggregations          metric.Int64Counter
	AggregationsFailed    metric.Int64Counter
	AggregationDuration   metric.Float64Histogram
	EngineRequests        metric.Int64Counter
	EngineRequestsFailed  metric.Int64Counter
	EngineRequestDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*HistoryMetrics, error) {
	var errJoin error

	aggregations, err := meter.Int64Counter("history_aggregations", metric.WithDescription("Number of instance history aggregations"))
	errJoin = errors.Join(errJoin, err)

	aggregationsFailed, err := meter.Int64Counter("history_aggregations_failed", metric.WithDescription("Number of instance history aggregations that failed"))
	errJoin = errors.Join(errJoin, err)

	aggregationDuration, err := meter.Float64Histogram("history_aggregation_duration", metric.WithUnit("ms"), metric.WithDescription("Time spent aggregating one instance history, milliseconds"))
	errJoin = errors.Join(errJoin, err)

	engineRequests, err := meter.Int64Counter("engine_requests", metric.WithDescription("Number of requests sent to the engine REST API"))
	errJoin = errors.Join(errJoin, err)

	engineRequestsFailed, err := meter.Int64Counter("engine_requests_failed", metric.WithDescription("Number of engine REST API requests that failed"))
	errJoin = errors.Join(errJoin, err)

	engineRequestDuration, err := meter.Float64Histogram("engine_request_duration", metric.WithUnit("ms"), metric.WithDescription("Engine REST API request latency, milliseconds"))
	errJoin = errors.Join(errJoin, err)

	metrics := HistoryMetrics{
		Aggregations:          aggregations,
		AggregationsFailed:    aggregationsFailed,
		AggregationDuration:   aggregationDuration,
		EngineRequests:        engineRequests,
		EngineRequestsFailed:  engineRequestsFailed,
		EngineRequestDuration: engineRequestDuration,
	}
	return &metrics, errJoin
}
