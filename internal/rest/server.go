// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/pbinitiative/zenbpm-history/internal/cockpit"
	"github.com/pbinitiative/zenbpm-history/internal/config"
	"github.com/pbinitiative/zenbpm-history/internal/log"
	apierror "github.com/pbinitiative/zenbpm-history/internal/rest/error"
	"github.com/pbinitiative/zenbpm-history/internal/rest/middleware"
	"github.com/pbinitiative/zenbpm-history/pkg/engine"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/navigation"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"
)

const (
	contentTypeJson = "application/json"
	contentTypeHtml = "text/html; charset=utf-8"
	contentTypeYaml = "application/yaml"
)

type Server struct {
	addr       string
	name       string
	started    time.Time
	server     *http.Server
	registry   *plugin.Registry
	aggregator *history.Aggregator
}

// Status is served on /system/status.
type Status struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Extensions int    `json:"extensions"`
}

func NewServer(conf config.Config, registry *plugin.Registry, aggregator *history.Aggregator) *Server {
	r := chi.NewRouter()
	s := Server{
		addr:       conf.Server.Addr,
		name:       conf.Name,
		started:    time.Now(),
		registry:   registry,
		aggregator: aggregator,
		server: &http.Server{
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           r,
			Addr:              conf.Server.Addr,
		},
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Correlation())
	r.Use(middleware.Opentelemetry(conf))
	r.Use(middleware.StripEmptyQueryParams())

	routes := func(r chi.Router) {
		r.Get("/plugins", s.GetPlugins)
		r.Get("/history/process-instance/", s.GetInstanceRoute)
		r.Get("/history/process-instance/{processInstanceId}", s.GetInstanceRoute)
		r.Get("/process-definition/{processDefinitionId}/history", s.GetDefinitionTab)
		r.Get("/process-instance/{processInstanceId}/toggle", s.GetDiagramToggle)
		r.Route("/api", func(r chi.Router) {
			r.Get("/history/process-instance/{processInstanceId}", s.GetInstanceHistory)
			r.Get("/process-definition/{processDefinitionId}/history-instances", s.GetDefinitionInstances)
		})
	}
	if conf.Server.Context == "" || conf.Server.Context == "/" {
		routes(r)
	} else {
		r.Route(strings.TrimSuffix(conf.Server.Context, "/"), routes)
	}
	// register system endpoints
	r.Route("/system", func(r chi.Router) {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJson(w, http.StatusOK, Status{
				Name:       s.name,
				Status:     "UP",
				Uptime:     time.Since(s.started).Truncate(time.Second).String(),
				Extensions: len(s.registry.List()),
			})
		})
	})
	return &s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	log.Info("ZenBpm history REST server listening on %s", listener.Addr())
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("Error starting server: %s", err)
		}
	}()
	return listener, nil
}

func (s *Server) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		log.Error("Error stopping server: %s", err)
	}
}

// GetPlugins lists the registered extensions, as json or, with format=yaml, as
// a yaml manifest.
func (s *Server) GetPlugins(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, r, http.StatusBadRequest, apierror.ApiError{Type: apierror.TypeBadRequest, Message: err.Error()})
		return
	}
	extensions := s.registry.List()
	switch {
	case format == nil || *format == "json":
		writeJson(w, http.StatusOK, extensions)
	case *format == "yaml":
		body, err := yaml.Marshal(extensions)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, apierror.ApiError{Type: apierror.TypeError, Message: err.Error()})
			return
		}
		w.Header().Set("Content-Type", contentTypeYaml)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	default:
		writeError(w, r, http.StatusBadRequest, apierror.ApiError{
			Type:    apierror.TypeBadRequest,
			Message: fmt.Sprintf("unsupported format %q", *format),
		})
	}
}

// GetInstanceRoute renders the history page. A request without an instance id
// gets an empty page, a failed aggregation an empty 502.
func (s *Server) GetInstanceRoute(w http.ResponseWriter, r *http.Request) {
	var processInstanceId string
	if raw := chi.URLParam(r, "processInstanceId"); raw != "" {
		if err := bindPathParameter("processInstanceId", raw, &processInstanceId); err != nil {
			writeHtml(w, http.StatusBadRequest, nil)
			return
		}
	}
	params := plugin.Params{ProcessInstanceId: processInstanceId}
	if processInstanceId != "" {
		params.Location = navigation.HistoryLocation(processInstanceId)
	}
	s.renderExtension(w, r, cockpit.ExtensionInstanceRoute, params)
}

func (s *Server) GetDefinitionTab(w http.ResponseWriter, r *http.Request) {
	var processDefinitionId string
	if err := bindPathParameter("processDefinitionId", chi.URLParam(r, "processDefinitionId"), &processDefinitionId); err != nil {
		writeHtml(w, http.StatusBadRequest, nil)
		return
	}
	s.renderExtension(w, r, cockpit.ExtensionDefinitionTab, plugin.Params{ProcessDefinitionId: processDefinitionId})
}

// GetDiagramToggle renders the toggle button of the runtime diagram. The
// optional location query parameter is the current cockpit location.
func (s *Server) GetDiagramToggle(w http.ResponseWriter, r *http.Request) {
	var processInstanceId string
	if err := bindPathParameter("processInstanceId", chi.URLParam(r, "processInstanceId"), &processInstanceId); err != nil {
		writeHtml(w, http.StatusBadRequest, nil)
		return
	}
	var location *string
	if err := runtime.BindQueryParameter("form", true, false, "location", r.URL.Query(), &location); err != nil {
		writeHtml(w, http.StatusBadRequest, nil)
		return
	}
	params := plugin.Params{ProcessInstanceId: processInstanceId}
	if location != nil {
		params.Location = *location
	}
	s.renderExtension(w, r, cockpit.ExtensionDiagramToggle, params)
}

func (s *Server) GetInstanceHistory(w http.ResponseWriter, r *http.Request) {
	var processInstanceId string
	if err := bindPathParameter("processInstanceId", chi.URLParam(r, "processInstanceId"), &processInstanceId); err != nil {
		writeError(w, r, http.StatusNotFound, apierror.ApiError{Type: apierror.TypeNotFound, Message: err.Error()})
		return
	}
	outcome := s.aggregator.Resolve(r.Context(), processInstanceId)
	switch outcome.Status {
	case history.OutcomeEmpty:
		writeError(w, r, http.StatusNotFound, apierror.ApiError{
			Type:    apierror.TypeNotFound,
			Message: history.ErrMissingInstanceId.Error(),
		})
	case history.OutcomeFailed:
		writeUpstreamError(w, r, outcome.Err)
	default:
		writeJson(w, http.StatusOK, cockpit.NewInstanceView(outcome.History))
	}
}

func (s *Server) GetDefinitionInstances(w http.ResponseWriter, r *http.Request) {
	var processDefinitionId string
	if err := bindPathParameter("processDefinitionId", chi.URLParam(r, "processDefinitionId"), &processDefinitionId); err != nil {
		writeError(w, r, http.StatusNotFound, apierror.ApiError{Type: apierror.TypeNotFound, Message: err.Error()})
		return
	}
	instances, err := s.aggregator.ListDefinitionInstances(r.Context(), processDefinitionId)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, instances)
}

// renderExtension renders into a buffer so a failed render leaves the panel
// blank.
func (s *Server) renderExtension(w http.ResponseWriter, r *http.Request, id string, params plugin.Params) {
	var buf bytes.Buffer
	if err := s.registry.Render(r.Context(), id, &buf, params); err != nil {
		log.Errorf(r.Context(), "Failed to render %s: %s", id, err)
		writeHtml(w, http.StatusBadGateway, nil)
		return
	}
	writeHtml(w, http.StatusOK, buf.Bytes())
}

func bindPathParameter(name string, value string, dest *string) error {
	return runtime.BindStyledParameterWithOptions("simple", name, value, dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
}

func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf(r.Context(), "Engine request failed: %s", err)
	if errors.Is(err, engine.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, apierror.ApiError{Type: apierror.TypeNotFound, Message: err.Error()})
		return
	}
	writeError(w, r, http.StatusBadGateway, apierror.ApiError{Type: apierror.TypeBadGateway, Message: err.Error()})
}

func writeHtml(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", contentTypeHtml)
	w.WriteHeader(status)
	if len(body) > 0 {
		w.Write(body)
	}
}

func writeJson(w http.ResponseWriter, status int, resp interface{}) {
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error("Server error: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJson)
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, resp apierror.ApiError) {
	w.Header().Set("Content-Type", contentTypeJson)
	w.WriteHeader(status)
	body, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(r.Context(), "Server error: %s", err)
	} else {
		w.Write(body)
	}
}
