package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mossburn/greenhouse-core/internal/device"
)

// handleListDevices returns all controlled devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.deps.Devices.List(r.Context())
	if err != nil {
		s.logger.Error("list devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.deps.Devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("get device failed", "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleCreateDevice registers a new controlled device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var d device.Device
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if err := d.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	if err := s.deps.Devices.Create(r.Context(), &d); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device name already exists")
			return
		}
		s.logger.Error("create device failed", "error", err)
		writeInternalError(w, "failed to create device")
		return
	}

	s.logger.Info("device created", "name", d.Name, "control_mode", d.ControlMode, "gpio_pin", d.GPIOPin)
	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice replaces a device's mutable fields.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.deps.Devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("get device for update failed", "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	oldPin := existing.GPIOPin
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := existing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	if err := s.deps.Devices.Update(r.Context(), existing); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("update device failed", "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	// A moved pin leaves a stale actuator claimed; release it so the
	// next cycle claims the new pin cleanly.
	if s.deps.Pool != nil && oldPin != existing.GPIOPin {
		if err := s.deps.Pool.Drop(oldPin); err != nil {
			s.logger.Error("releasing old pin failed", "device", existing.Name, "pin", oldPin, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device and releases its GPIO pin.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.deps.Devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("get device for delete failed", "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	if err := s.deps.Devices.Delete(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("delete device failed", "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	if s.deps.Pool != nil {
		if err := s.deps.Pool.Drop(d.GPIOPin); err != nil {
			s.logger.Error("releasing pin failed", "device", d.Name, "pin", d.GPIOPin, "error", err)
		}
	}

	s.logger.Info("device deleted", "name", d.Name)
	w.WriteHeader(http.StatusNoContent)
}

// controlRequest is the request body for POST /devices/{id}/control.
type controlRequest struct {
	On bool `json:"on"`
}

// handleControlDevice manually switches a device on or off.
//
// Only devices in manual mode accept overrides; automation owns devices
// in auto mode, and an override would be reverted on the next cycle
// anyway. Switch such a device to manual first.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.deps.Devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("get device for control failed", "error", err)
		writeInternalError(w, "failed to control device")
		return
	}

	if err := s.deps.Commander.Override(r.Context(), d, req.On); err != nil {
		if errors.Is(err, device.ErrNotManual) {
			writeConflict(w, "device is in auto mode; switch to manual before overriding")
			return
		}
		s.logger.Error("control device failed", "device", d.Name, "error", err)
		writeInternalError(w, "failed to control device")
		return
	}

	d.CurrentStatus = req.On
	writeJSON(w, http.StatusOK, d)
}
