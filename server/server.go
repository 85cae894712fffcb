// Package server exposes the status HTTP API: service health and the latest
// degree-day snapshot per configured sensor.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mjasion/degree-days/aggregate"
	"github.com/mjasion/degree-days/buffer"
	"github.com/mjasion/degree-days/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

// SnapshotSource yields the latest committed snapshot for one sensor
type SnapshotSource interface {
	Snapshot() *aggregate.Snapshot
}

// Instance binds one configured sensor to its snapshot source and display
// options. The weekly/monthly flags gate display only; the aggregates are
// always computed underneath.
type Instance struct {
	Name           string
	Title          string
	IncludeWeekly  bool
	IncludeMonthly bool
	Source         SnapshotSource
}

// Server is the status HTTP server
type Server struct {
	instances      []Instance
	buf            *buffer.RingBuffer[*types.Reading]
	updateInterval time.Duration
	httpServer     *http.Server
	logger         *zap.Logger
}

// snapshotView is the published form of a snapshot, with display gating applied
type snapshotView struct {
	Sensor          string             `json:"sensor"`
	Title           string             `json:"title"`
	EntityID        string             `json:"entityId"`
	Values          map[string]float64 `json:"values"`
	BaseTemperature float64            `json:"baseTemperature"`
	TemperatureUnit string             `json:"temperatureUnit"`
	DateRange       string             `json:"dateRange"`
	MeanTemperature *float64           `json:"meanTemperature,omitempty"`
	UpdatedAt       *time.Time         `json:"updatedAt,omitempty"`
}

// healthStatus is the body of the /health response
type healthStatus struct {
	Status          string     `json:"status"`
	Sensors         int        `json:"sensors"`
	BufferedSamples int        `json:"bufferedSamples"`
	LastUpdate      *time.Time `json:"lastUpdate,omitempty"`
}

// New creates a status server on the given port. buf may be nil when remote
// write is disabled.
func New(instances []Instance, buf *buffer.RingBuffer[*types.Reading], updateInterval time.Duration, port int, logger *zap.Logger) *Server {
	s := &Server{
		instances:      instances,
		buf:            buf,
		updateInterval: updateInterval,
		logger:         logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/snapshots", s.handleSnapshots).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/snapshots/{sensor}", s.handleSnapshot).Methods(http.MethodGet)

	accessLog := &zapio.Writer{Log: logger.Named("http"), Level: zap.DebugLevel}
	handler := handlers.CombinedLoggingHandler(accessLog, router)
	handler = gziphandler.GzipHandler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return s
}

// Start begins serving and blocks until the server is closed
func (s *Server) Start() error {
	s.logger.Info("starting status server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server error: %w", err)
	}
	return nil
}

// Stop shuts down the status server
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:  "healthy",
		Sensors: len(s.instances),
	}
	if s.buf != nil {
		status.BufferedSamples = s.buf.Size()
	}

	var newest time.Time
	stale := 0
	for _, instance := range s.instances {
		updated := instance.Source.Snapshot().UpdatedAt
		if updated.After(newest) {
			newest = updated
		}
		// A zero UpdatedAt means no successful cycle yet, which is expected
		// right after startup
		if !updated.IsZero() && time.Since(updated) > 3*s.updateInterval {
			stale++
		}
	}
	if !newest.IsZero() {
		status.LastUpdate = &newest
	}

	code := http.StatusOK
	if stale == len(s.instances) && stale > 0 {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if stale > 0 {
		status.Status = "degraded"
	}

	writeJSON(w, code, status)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	views := make([]snapshotView, 0, len(s.instances))
	for _, instance := range s.instances {
		views = append(views, newSnapshotView(instance))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["sensor"]
	for _, instance := range s.instances {
		if instance.Name == name {
			writeJSON(w, http.StatusOK, newSnapshotView(instance))
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": fmt.Sprintf("unknown sensor %q", name),
	})
}

// newSnapshotView applies the instance's display gating to its snapshot
func newSnapshotView(instance Instance) snapshotView {
	snapshot := instance.Source.Snapshot()

	values := make(map[string]float64, len(snapshot.Values))
	for _, m := range displayMetrics(instance, snapshot) {
		if v, ok := snapshot.Values[m.Key()]; ok {
			values[m.Key()] = v
		}
	}

	view := snapshotView{
		Sensor:          snapshot.Sensor,
		Title:           instance.Title,
		EntityID:        snapshot.EntityID,
		Values:          values,
		BaseTemperature: snapshot.BaseTemperature,
		TemperatureUnit: snapshot.TemperatureUnit,
		DateRange:       snapshot.DateRange,
		MeanTemperature: snapshot.MeanTemperature,
	}
	if !snapshot.UpdatedAt.IsZero() {
		updated := snapshot.UpdatedAt
		view.UpdatedAt = &updated
	}

	return view
}

func displayMetrics(instance Instance, snapshot *aggregate.Snapshot) []aggregate.Metric {
	candidates := aggregate.HeatingMetrics()
	if _, hasCooling := snapshot.Values[aggregate.Metric{Mode: aggregate.ModeCooling, Period: aggregate.PeriodDaily}.Key()]; hasCooling {
		candidates = append(candidates, aggregate.CoolingMetrics()...)
	}

	var metrics []aggregate.Metric
	for _, m := range candidates {
		if m.Period == aggregate.PeriodWeekly && !instance.IncludeWeekly {
			continue
		}
		if m.Period == aggregate.PeriodMonthly && !instance.IncludeMonthly {
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
