package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"central-portal/internal/domain"
	"central-portal/internal/service"
)

// DeviceHandler serves the device inventory and the bulk actions
type DeviceHandler struct {
	devices *service.DeviceService
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
	}
}

// DeviceListResponse wraps the normalized inventory
type DeviceListResponse struct {
	Items []domain.Device `json:"items"`
}

// RenameRequest is the bulk AP rename payload
type RenameRequest struct {
	Items []domain.RenameItem `json:"items"`
}

// List returns the device inventory in the portal's normalized shape
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		writeVendorError(w, r, err)
		return
	}

	if devices == nil {
		devices = []domain.Device{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeviceListResponse{Items: devices})
}

// Rename applies hostnames to a batch of APs, one vendor call per item
func (h *DeviceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	result, err := h.devices.RenameAPs(r.Context(), req.Items)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBatch) {
			http.Error(w, `{"error":"Request contains no items"}`, http.StatusBadRequest)
			return
		}
		writeVendorError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Move assigns a batch of devices to a group and optionally a site
func (h *DeviceHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req domain.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	result, err := h.devices.MoveDevices(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyBatch):
			http.Error(w, `{"error":"Request contains no serials"}`, http.StatusBadRequest)
		case errors.Is(err, domain.ErrMissingGroup):
			http.Error(w, `{"error":"Target group is required"}`, http.StatusBadRequest)
		default:
			writeVendorError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
