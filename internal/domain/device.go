package domain

import "errors"

var (
	ErrEmptyBatch   = errors.New("bulk request contains no items")
	ErrMissingGroup = errors.New("move request has no target group")
)

// Device types reported by the monitoring API.
const (
	DeviceTypeAP      = "AP"
	DeviceTypeGateway = "GATEWAY"
	DeviceTypeSwitch  = "SWITCH"
)

// Device is a vendor device in the portal's normalized shape. Field names
// match what the frontend consumes, not the vendor's wire format.
type Device struct {
	Serial     string `json:"serial"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
	Model      string `json:"model,omitempty"`
	Status     string `json:"status,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	Site       string `json:"site,omitempty"`
	Group      string `json:"group,omitempty"`
}

// RenameItem is one AP rename within a bulk request.
type RenameItem struct {
	Serial   string `json:"serial"`
	Hostname string `json:"hostname"`
}

// MoveRequest assigns a set of devices to a group and optionally a site.
type MoveRequest struct {
	Serials []string `json:"serials"`
	Group   string   `json:"group"`
	Site    string   `json:"site,omitempty"`
}

// ItemResult is the outcome of a single device within a bulk action.
type ItemResult struct {
	Serial string `json:"serial"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BulkResult collects per-device outcomes of a bulk action. One failed
// device never aborts the rest of the batch.
type BulkResult struct {
	BatchID   string       `json:"batch_id"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []ItemResult `json:"results"`
}
