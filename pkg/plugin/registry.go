package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	otelpkg "github.com/pbinitiative/zenbpm-history/pkg/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Plugin points the cockpit host mounts extensions on.
const (
	PointDefinitionRuntimeTab  = "cockpit.processDefinition.runtime.tab"
	PointInstanceDiagramPlugin = "cockpit.processInstance.diagram.plugin"
	PointRoute                 = "cockpit.route"
)

var (
	ErrDuplicateExtension = errors.New("extension already registered")
	ErrExtensionNotFound  = errors.New("extension not found")
)

// Params is what the host hands to a render callback.
type Params struct {
	ProcessDefinitionId string
	ProcessInstanceId   string
	// Location is the current hash location, e.g. "#/history/process-instance/42"
	Location string
}

type RenderFunc func(ctx context.Context, w io.Writer, params Params) error

type Extension struct {
	Id          string            `json:"id" yaml:"id"`
	PluginPoint string            `json:"pluginPoint" yaml:"pluginPoint"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Render      RenderFunc        `json:"-" yaml:"-"`
}

// Registry holds extensions by id. Registration order is kept for listing.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]Extension
	order      []string
	logger     hclog.Logger
	tracer     trace.Tracer
}

func NewRegistry() *Registry {
	return &Registry{
		extensions: map[string]Extension{},
		logger:     hclog.Default().Named("plugin-registry"),
		tracer:     otel.GetTracerProvider().Tracer("plugin-registry"),
	}
}

func (r *Registry) Register(ext Extension) error {
	if ext.Id == "" || ext.PluginPoint == "" {
		return fmt.Errorf("extension needs an id and a plugin point: %+v", ext)
	}
	if ext.Render == nil {
		return fmt.Errorf("extension %s has no render callback", ext.Id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extensions[ext.Id]; ok {
		return fmt.Errorf("%s: %w", ext.Id, ErrDuplicateExtension)
	}
	r.extensions[ext.Id] = ext
	r.order = append(r.order, ext.Id)
	r.logger.Debug("extension registered", "id", ext.Id, "pluginPoint", ext.PluginPoint)
	return nil
}

func (r *Registry) Get(id string) (Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.extensions[id]
	if !ok {
		return Extension{}, fmt.Errorf("%s: %w", id, ErrExtensionNotFound)
	}
	return ext, nil
}

// List returns all extensions in registration order.
func (r *Registry) List() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Extension, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.extensions[id])
	}
	return result
}

// ByPluginPoint returns the extensions mounted on point, ordered by id.
func (r *Registry) ByPluginPoint(point string) []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Extension{}
	for _, ext := range r.extensions {
		if ext.PluginPoint == point {
			result = append(result, ext)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result
}

// Render invokes the render callback of extension id.
func (r *Registry) Render(ctx context.Context, id string, w io.Writer, params Params) error {
	ext, err := r.Get(id)
	if err != nil {
		return err
	}
	ctx, span := r.tracer.Start(ctx, "extension-render", trace.WithAttributes(
		attribute.String(otelpkg.AttributeExtensionId, ext.Id),
		attribute.String(otelpkg.AttributeExtensionPoint, ext.PluginPoint),
	))
	defer span.End()
	if err := ext.Render(ctx, w, params); err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("extension render failed", "id", id, "err", err)
		return fmt.Errorf("failed to render %s: %w", id, err)
	}
	return nil
}
