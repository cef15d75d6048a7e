package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// maxProxyBody caps request bodies forwarded to the vendor API.
const maxProxyBody = 1 << 20

// VendorProxy is the slice of the Central client the proxy routes use
type VendorProxy interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Post(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error)
	Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// ProxyHandler forwards portal routes to their vendor API counterparts,
// reshaping the assorted list envelopes into a uniform {"items": [...]}.
type ProxyHandler struct {
	api VendorProxy
}

// NewProxyHandler creates a new vendor proxy handler
func NewProxyHandler(api VendorProxy) *ProxyHandler {
	return &ProxyHandler{
		api: api,
	}
}

// ItemsResponse is the uniform list envelope the frontend consumes
type ItemsResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Clients lists connected wireless and wired clients
func (h *ProxyHandler) Clients(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/monitoring/v1/clients", "clients")
}

// Sites lists configured sites
func (h *ProxyHandler) Sites(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/central/v2/sites", "sites")
}

// Groups lists configuration groups
func (h *ProxyHandler) Groups(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/configuration/v2/groups", "data", "groups")
}

// WLANs lists the configured SSIDs
func (h *ProxyHandler) WLANs(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "/network-config/v1alpha1/wlan-ssids", "wlan-ssids", "wlans")
}

// GatewayVLANs lists the VLANs configured on one gateway
func (h *ProxyHandler) GatewayVLANs(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" {
		http.Error(w, `{"error":"Serial is required"}`, http.StatusBadRequest)
		return
	}

	h.list(w, r, "/configuration/v1/gateways/"+url.PathEscape(serial)+"/vlans", "vlans", "data")
}

// CreateWLAN forwards a WLAN definition to the vendor
func (h *ProxyHandler) CreateWLAN(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, `{"error":"WLAN name is required"}`, http.StatusBadRequest)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
	if err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	var body any
	if len(raw) > 0 {
		if !json.Valid(raw) {
			http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
			return
		}
		body = json.RawMessage(raw)
	}

	resp, err := h.api.Post(r.Context(), "/network-config/v1alpha1/wlan-ssids/"+url.PathEscape(name), nil, body)
	if err != nil {
		writeVendorError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// DeleteWLAN removes an SSID by name
func (h *ProxyHandler) DeleteWLAN(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, `{"error":"WLAN name is required"}`, http.StatusBadRequest)
		return
	}

	resp, err := h.api.Delete(r.Context(), "/network-config/v1alpha1/wlan-ssids/"+url.PathEscape(name), nil)
	if err != nil {
		writeVendorError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// list forwards a GET, carrying the caller's query string, and rewraps
// the response list
func (h *ProxyHandler) list(w http.ResponseWriter, r *http.Request, vendorPath string, keys ...string) {
	raw, err := h.api.Get(r.Context(), vendorPath, r.URL.Query())
	if err != nil {
		writeVendorError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ItemsResponse{Items: unwrapItems(raw, keys...)})
}

// unwrapItems digs the list out of a vendor payload. Envelope shapes vary
// by endpoint generation: a named key, a generic "items", or a bare
// array. Anything else yields an empty list, never nil.
func unwrapItems(raw json.RawMessage, keys ...string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil && items != nil {
		return items
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return []json.RawMessage{}
	}

	for _, key := range append(keys, "items") {
		nested, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(nested, &items); err == nil && items != nil {
			return items
		}
	}

	return []json.RawMessage{}
}
