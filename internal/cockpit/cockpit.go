// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package cockpit

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/navigation"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
)

const (
	ExtensionDefinitionTab = "definitionTabHistoricInstances"
	ExtensionDiagramToggle = "instanceDiagramHistoricToggle"
	ExtensionInstanceRoute = "instanceRouteHistory"
	InstanceRoutePath      = "/history/process-instance/:id"
	instanceRouteLabel     = "/history"
	definitionTabLabel     = "History"
	diagramToggleLabel     = "History"
)

// Cockpit renders the history extensions. It holds no per-request state; every
// render aggregates afresh.
type Cockpit struct {
	aggregator *history.Aggregator
	logger     hclog.Logger
}

func New(aggregator *history.Aggregator) *Cockpit {
	return &Cockpit{
		aggregator: aggregator,
		logger:     hclog.Default().Named("cockpit"),
	}
}

// Extensions returns the extension descriptors in the order they are offered
// to the host.
func (c *Cockpit) Extensions() []plugin.Extension {
	return []plugin.Extension{
		{
			Id:          ExtensionDefinitionTab,
			PluginPoint: plugin.PointDefinitionRuntimeTab,
			Properties:  map[string]string{"label": definitionTabLabel},
			Render:      c.RenderDefinitionTab,
		},
		{
			Id:          ExtensionDiagramToggle,
			PluginPoint: plugin.PointInstanceDiagramPlugin,
			Render:      c.RenderDiagramToggle,
		},
		{
			Id:          ExtensionInstanceRoute,
			PluginPoint: plugin.PointRoute,
			Properties:  map[string]string{"path": InstanceRoutePath, "label": instanceRouteLabel},
			Render:      c.RenderInstanceRoute,
		},
	}
}

func (c *Cockpit) Register(registry *plugin.Registry) error {
	for _, ext := range c.Extensions() {
		if err := registry.Register(ext); err != nil {
			return fmt.Errorf("failed to register cockpit extensions: %w", err)
		}
	}
	return nil
}

// RenderDefinitionTab lists the historic instances of the definition, most
// recently ended first.
func (c *Cockpit) RenderDefinitionTab(ctx context.Context, w io.Writer, params plugin.Params) error {
	if params.ProcessDefinitionId == "" {
		return nil
	}
	instances, err := c.aggregator.ListDefinitionInstances(ctx, params.ProcessDefinitionId)
	if err != nil {
		return err
	}
	return execute(w, "history-table", instances)
}

// RenderDiagramToggle renders the button of the runtime diagram that leads to
// the history route of the same instance.
func (c *Cockpit) RenderDiagramToggle(ctx context.Context, w io.Writer, params plugin.Params) error {
	button := navigation.NewToggleButton(navigation.ViewRuntime)
	href, ok := button.Target(params.Location)
	if !ok {
		if params.ProcessInstanceId == "" {
			return nil
		}
		href = navigation.HistoryLocation(params.ProcessInstanceId)
	}
	return execute(w, "toggle", struct {
		Href  string
		Label string
	}{Href: href, Label: diagramToggleLabel})
}

// RenderInstanceRoute renders the history page of the instance named by the
// location. Nothing is written when the location names no instance or when
// the aggregation fails; the failure is returned to the host.
func (c *Cockpit) RenderInstanceRoute(ctx context.Context, w io.Writer, params plugin.Params) error {
	outcome := c.aggregator.Resolve(ctx, navigation.ParseInstanceId(params.Location))
	switch outcome.Status {
	case history.OutcomeEmpty:
		return nil
	case history.OutcomeFailed:
		c.logger.Error("history page unavailable", "location", params.Location, "err", outcome.Err)
		return outcome.Err
	}
	return execute(w, "instance", NewInstanceView(outcome.History))
}

// execute renders into a buffer first so a template failure never leaves a
// half written panel.
func execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
