// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package history

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	otelpkg "github.com/pbinitiative/zenbpm-history/pkg/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultVersion is shown when the engine reports no version.
const DefaultVersion = "7.15.0"

// InstanceHistory is the cross-referenced view of one process instance.
type InstanceHistory struct {
	Instance ProcessInstance
	Version  string
	Diagram  Diagram
	// Activities ordered by end time, most recent first
	Activities []ActivityInstance
	// Variables ordered by name
	Variables          []VariableInstance
	Decisions          []DecisionInstance
	DecisionByActivity map[string]string
	ActivityById       map[string]ActivityInstance
}

type Aggregator struct {
	fetcher        Fetcher
	loader         *Loader
	defaultVersion string
	maxResults     int
	now            func() time.Time
	logger         hclog.Logger
	tracer         trace.Tracer
	metrics        *otelpkg.HistoryMetrics
}

type AggregatorOption = func(*Aggregator)

func NewAggregator(fetcher Fetcher, options ...AggregatorOption) *Aggregator {
	aggregator := Aggregator{
		fetcher:        fetcher,
		loader:         NewLoader(fetcher),
		defaultVersion: DefaultVersion,
		maxResults:     1000,
		now:            time.Now,
		logger:         hclog.Default().Named("history-aggregator"),
		tracer:         otel.GetTracerProvider().Tracer("history-aggregator"),
	}
	for _, option := range options {
		option(&aggregator)
	}
	if aggregator.metrics == nil {
		metrics, err := otelpkg.NewMetrics(otel.Meter("history"))
		if err != nil {
			aggregator.logger.Warn("failed to create history metrics", "err", err)
		} else {
			aggregator.metrics = metrics
		}
	}
	return &aggregator
}

func WithDefaultVersion(version string) AggregatorOption {
	return func(a *Aggregator) {
		if version != "" {
			a.defaultVersion = version
		}
	}
}

// WithInstanceListLimit sets maxResults of the definition instance list.
func WithInstanceListLimit(maxResults int) AggregatorOption {
	return func(a *Aggregator) {
		if maxResults > 0 {
			a.maxResults = maxResults
		}
	}
}

// WithClock replaces the source of "now" used for running activities.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(logger hclog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

func WithMetrics(metrics *otelpkg.HistoryMetrics) AggregatorOption {
	return func(a *Aggregator) { a.metrics = metrics }
}

// Aggregate loads the instance and then retrieves version, diagram, activity,
// variable and decision traces concurrently. It waits for all five retrievals
// and fails as a whole when any of them fails; no partial result is returned.
func (a *Aggregator) Aggregate(ctx context.Context, processInstanceId string) (result *InstanceHistory, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "history-aggregate", trace.WithAttributes(
		attribute.String(otelpkg.AttributeProcessInstanceId, processInstanceId),
	))
	defer func() {
		a.record(ctx, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	instance, err := a.loader.LoadInstance(ctx, processInstanceId)
	if err != nil {
		return nil, err
	}
	if instance.ProcessDefinitionId == "" {
		return nil, fmt.Errorf("process instance %s: %w", processInstanceId, ErrMissingDefinitionId)
	}
	span.SetAttributes(attribute.String(otelpkg.AttributeProcessDefinition, instance.ProcessDefinitionId))

	var (
		version    string
		diagram    Diagram
		activities []ActivityInstance
		variables  []VariableInstance
		decisions  []DecisionInstance
	)
	// plain group: a failed retrieval does not cancel its siblings
	var g errgroup.Group
	g.Go(func() error {
		v, err := a.fetcher.GetVersion(ctx)
		if err != nil {
			return &RetrievalError{Resource: "version", Err: err}
		}
		version = v
		return nil
	})
	g.Go(func() error {
		d, err := a.fetcher.GetProcessDefinitionXml(ctx, instance.ProcessDefinitionId)
		if err != nil {
			return &RetrievalError{Resource: "process definition diagram", Err: err}
		}
		diagram = d
		return nil
	})
	g.Go(func() error {
		acts, err := a.fetcher.GetHistoricActivityInstances(ctx, processInstanceId)
		if err != nil {
			return &RetrievalError{Resource: "activity instances", Err: err}
		}
		activities = acts
		return nil
	})
	g.Go(func() error {
		vars, err := a.fetcher.GetHistoricVariableInstances(ctx, processInstanceId)
		if err != nil {
			return &RetrievalError{Resource: "variable instances", Err: err}
		}
		variables = vars
		return nil
	})
	g.Go(func() error {
		decs, err := a.fetcher.GetHistoricDecisionInstances(ctx, processInstanceId)
		if err != nil {
			return &RetrievalError{Resource: "decision instances", Err: err}
		}
		decisions = decs
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("history aggregation failed", "processInstanceId", processInstanceId, "err", err)
		return nil, err
	}

	if version == "" {
		version = a.defaultVersion
	}
	now := a.now()
	result = &InstanceHistory{
		Instance:           instance,
		Version:            version,
		Diagram:            diagram,
		Activities:         SortActivitiesByEndTime(activities, now),
		Variables:          SortVariablesByName(variables),
		Decisions:          decisions,
		DecisionByActivity: IndexDecisionsByActivity(decisions),
		ActivityById:       IndexActivitiesById(activities),
	}
	span.SetAttributes(
		attribute.Int(otelpkg.AttributeActivityCount, len(activities)),
		attribute.Int(otelpkg.AttributeVariableCount, len(variables)),
		attribute.Int(otelpkg.AttributeDecisionCount, len(decisions)),
	)
	a.logger.Debug("history aggregated", "processInstanceId", processInstanceId,
		"activities", len(activities), "variables", len(variables), "decisions", len(decisions))
	return result, nil
}

// ListDefinitionInstances lists the historic instances of a process definition,
// most recently ended first.
func (a *Aggregator) ListDefinitionInstances(ctx context.Context, processDefinitionId string) ([]ProcessInstance, error) {
	if processDefinitionId == "" {
		return nil, ErrMissingDefinitionId
	}
	query := DefaultInstanceListQuery(processDefinitionId)
	query.MaxResults = a.maxResults
	instances, err := a.fetcher.GetHistoricProcessInstances(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of %s: %w", processDefinitionId, err)
	}
	return instances, nil
}

func (a *Aggregator) record(ctx context.Context, start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		a.metrics.AggregationsFailed.Add(ctx, 1)
	}
	attrs := metric.WithAttributes(attribute.String(otelpkg.AttributeAggregationOutcome, outcome))
	a.metrics.Aggregations.Add(ctx, 1, attrs)
	a.metrics.AggregationDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}
