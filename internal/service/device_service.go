package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"central-portal/internal/domain"
	"central-portal/internal/observability"

	"github.com/google/uuid"
)

// CentralAPI is the slice of the vendor client the device service uses.
type CentralAPI interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
}

// DeviceService owns the device inventory surface: the normalized listing
// and the bulk rename/move actions. Bulk actions run item by item so one
// bad serial never sinks the rest of the batch.
type DeviceService struct {
	api CentralAPI
}

func NewDeviceService(api CentralAPI) *DeviceService {
	return &DeviceService{api: api}
}

// ListDevices fetches the vendor inventory and normalizes it. The vendor
// wire format varies across API generations; the frontend always sees the
// same field names.
func (s *DeviceService) ListDevices(ctx context.Context) ([]domain.Device, error) {
	raw, err := s.api.Get(ctx, "/monitoring/v1/devices", nil)
	if err != nil {
		return nil, err
	}
	return normalizeDevices(raw), nil
}

// RenameAPs applies hostnames to access points one at a time, collecting
// per-device outcomes under a shared batch ID.
func (s *DeviceService) RenameAPs(ctx context.Context, items []domain.RenameItem) (*domain.BulkResult, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	result := &domain.BulkResult{
		BatchID: uuid.New().String(),
		Results: make([]domain.ItemResult, 0, len(items)),
	}
	ctx = observability.WithBatchID(ctx, result.BatchID)
	log := observability.FromContext(ctx)

	for _, item := range items {
		outcome := domain.ItemResult{Serial: item.Serial, OK: true}

		switch {
		case item.Serial == "":
			outcome.OK = false
			outcome.Error = "missing serial"
		case item.Hostname == "":
			outcome.OK = false
			outcome.Error = "missing hostname"
		default:
			_, err := s.api.Post(ctx,
				"/configuration/v1/ap_settings/"+url.PathEscape(item.Serial), nil,
				map[string]string{"hostname": item.Hostname})
			if err != nil {
				outcome.OK = false
				outcome.Error = err.Error()
			}
		}

		if outcome.OK {
			result.Succeeded++
			log.Info("ap renamed", "serial", item.Serial, "hostname", item.Hostname)
		} else {
			result.Failed++
			log.Warn("ap rename failed", "serial", item.Serial, "error", outcome.Error)
		}
		result.Results = append(result.Results, outcome)
	}

	return result, nil
}

// MoveDevices assigns devices to a group, and optionally a site, one
// serial at a time.
func (s *DeviceService) MoveDevices(ctx context.Context, req domain.MoveRequest) (*domain.BulkResult, error) {
	if len(req.Serials) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if req.Group == "" {
		return nil, domain.ErrMissingGroup
	}

	result := &domain.BulkResult{
		BatchID: uuid.New().String(),
		Results: make([]domain.ItemResult, 0, len(req.Serials)),
	}
	ctx = observability.WithBatchID(ctx, result.BatchID)
	log := observability.FromContext(ctx)

	for _, serial := range req.Serials {
		outcome := domain.ItemResult{Serial: serial, OK: true}

		if serial == "" {
			outcome.OK = false
			outcome.Error = "missing serial"
		} else {
			body := map[string]any{
				"group":   req.Group,
				"serials": []string{serial},
			}
			if req.Site != "" {
				body["site"] = req.Site
			}
			if _, err := s.api.Post(ctx, "/configuration/v1/devices/move", nil, body); err != nil {
				outcome.OK = false
				outcome.Error = err.Error()
			}
		}

		if outcome.OK {
			result.Succeeded++
			log.Info("device moved", "serial", serial, "group", req.Group)
		} else {
			result.Failed++
			log.Warn("device move failed", "serial", serial, "error", outcome.Error)
		}
		result.Results = append(result.Results, outcome)
	}

	return result, nil
}

// normalizeDevices converts a vendor inventory payload into the portal
// shape. It tolerates the list living under "devices" or "items", or the
// payload being a bare array.
func normalizeDevices(raw json.RawMessage) []domain.Device {
	var entries []map[string]any

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, key := range []string{"devices", "items"} {
			if inner, ok := envelope[key]; ok {
				if err := json.Unmarshal(inner, &entries); err == nil {
					break
				}
			}
		}
	} else {
		json.Unmarshal(raw, &entries)
	}

	devices := make([]domain.Device, 0, len(entries))
	for _, entry := range entries {
		devices = append(devices, domain.Device{
			Serial:     pickString(entry, "serial", "serial_number", "serialNumber"),
			Name:       pickString(entry, "name", "hostname"),
			DeviceType: normalizeDeviceType(pickString(entry, "deviceType", "device_type", "type")),
			Model:      pickString(entry, "model"),
			Status:     pickString(entry, "status"),
			IPAddress:  pickString(entry, "ipAddress", "ip_address", "ip"),
			Site:       pickString(entry, "site", "site_name"),
			Group:      pickString(entry, "group", "group_name"),
		})
	}
	return devices
}

// pickString returns the first non-empty string value among keys.
func pickString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// normalizeDeviceType folds the vendor's type spellings into the three
// the frontend filters on.
func normalizeDeviceType(t string) string {
	switch strings.ToUpper(strings.ReplaceAll(t, " ", "_")) {
	case "AP", "IAP", "ACCESS_POINT":
		return domain.DeviceTypeAP
	case "GATEWAY", "CONTROLLER":
		return domain.DeviceTypeGateway
	case "SWITCH":
		return domain.DeviceTypeSwitch
	default:
		return strings.ToUpper(t)
	}
}
