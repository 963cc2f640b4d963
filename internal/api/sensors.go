package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mossburn/greenhouse-core/internal/sensor"
)

// handleListSensors returns all registered sensor descriptors.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := s.deps.Sensors.List(r.Context())
	if err != nil {
		s.logger.Error("list sensors failed", "error", err)
		writeInternalError(w, "failed to list sensors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": sensors,
		"count":   len(sensors),
	})
}

// handleGetSensor returns a single sensor descriptor by name.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	desc, err := s.deps.Sensors.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, sensor.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("get sensor failed", "error", err)
		writeInternalError(w, "failed to get sensor")
		return
	}

	writeJSON(w, http.StatusOK, desc)
}

// handleCreateSensor registers a new sensor.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var desc sensor.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if desc.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if !sensor.ValidKind(desc.Kind) {
		writeBadRequest(w, "invalid sensor kind")
		return
	}
	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}

	if err := s.deps.Sensors.Create(r.Context(), &desc); err != nil {
		if errors.Is(err, sensor.ErrSensorExists) {
			writeConflict(w, "sensor name already exists")
			return
		}
		s.logger.Error("create sensor failed", "error", err)
		writeInternalError(w, "failed to create sensor")
		return
	}

	s.logger.Info("sensor created", "name", desc.Name, "kind", desc.Kind, "simulate", desc.Simulate)
	writeJSON(w, http.StatusCreated, desc)
}

// handleUpdateSensor replaces a sensor's mutable fields. The ID is
// preserved; a changed descriptor clears any automation-cycle
// suppression for a sensor whose hardware was fixed.
func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	existing, err := s.deps.Sensors.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, sensor.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("get sensor for update failed", "error", err)
		writeInternalError(w, "failed to update sensor")
		return
	}

	id := existing.ID
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if !sensor.ValidKind(existing.Kind) {
		writeBadRequest(w, "invalid sensor kind")
		return
	}

	if err := s.deps.Sensors.Update(r.Context(), existing); err != nil {
		if errors.Is(err, sensor.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("update sensor failed", "error", err)
		writeInternalError(w, "failed to update sensor")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteSensor removes a sensor by name.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	desc, err := s.deps.Sensors.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, sensor.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("get sensor for delete failed", "error", err)
		writeInternalError(w, "failed to delete sensor")
		return
	}

	if err := s.deps.Sensors.Delete(r.Context(), desc.ID); err != nil {
		if errors.Is(err, sensor.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		s.logger.Error("delete sensor failed", "error", err)
		writeInternalError(w, "failed to delete sensor")
		return
	}

	s.logger.Info("sensor deleted", "name", name)
	w.WriteHeader(http.StatusNoContent)
}

// liveReading is one sensor's result in the live readings response.
// Exactly one of Value, Measurements, or Error is set.
type liveReading struct {
	Sensor       string             `json:"sensor"`
	Kind         sensor.Kind        `json:"kind"`
	Value        *float64           `json:"value,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// handleLiveReadings reads every registered sensor on demand and returns
// the current values. Hardware reads go through the shared probe cache,
// so a burst of dashboard refreshes does not hammer the bus.
func (s *Server) handleLiveReadings(w http.ResponseWriter, r *http.Request) {
	descs, err := s.deps.Sensors.List(r.Context())
	if err != nil {
		s.logger.Error("list sensors for live read failed", "error", err)
		writeInternalError(w, "failed to read sensors")
		return
	}

	results := make([]liveReading, 0, len(descs))
	for i := range descs {
		desc := &descs[i]
		entry := liveReading{Sensor: desc.Name, Kind: desc.Kind}

		sn, err := sensor.New(desc, s.deps.SensorEnv)
		if err != nil {
			entry.Error = err.Error()
			results = append(results, entry)
			continue
		}

		reading, err := sn.Read(r.Context())
		if err != nil {
			entry.Error = err.Error()
			results = append(results, entry)
			continue
		}

		if reading.IsBundle() {
			entry.Measurements = reading.Measurements()
		} else {
			v := reading.Value()
			entry.Value = &v
		}
		results = append(results, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": results,
		"count":    len(results),
	})
}

// maxLogLimit caps how many log entries one request can fetch.
const maxLogLimit = 1000

// handleSensorLogs returns logged measurements for a sensor, newest
// first. Bundle sensors log under derived names (e.g. probe1_temp), so
// the path name should match the log name, not the sensor name.
//
// Query parameters:
//   - limit: maximum entries to return (default 100, capped at 1000)
func (s *Server) handleSensorLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxLogLimit)
	}

	entries, err := s.deps.Readings.ListBySensor(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("list sensor logs failed", "sensor", name, "error", err)
		writeInternalError(w, "failed to list sensor logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor": name,
		"logs":   entries,
		"count":  len(entries),
	})
}
