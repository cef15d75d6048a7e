package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"central-portal/internal/central"
	"central-portal/internal/testutil"
)

// proxyRouter mounts the handler the way the server does, so URL params
// resolve.
func proxyRouter(h *ProxyHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/clients", h.Clients)
	r.Get("/api/sites", h.Sites)
	r.Get("/api/groups", h.Groups)
	r.Get("/api/config/wlans", h.WLANs)
	r.Post("/api/config/wlan/{name}", h.CreateWLAN)
	r.Delete("/api/config/wlan/{name}", h.DeleteWLAN)
	r.Get("/api/monitoring/gateways/{serial}/vlans", h.GatewayVLANs)
	return r
}

func TestProxyHandler_Clients(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return json.RawMessage(`{"clients": [{"mac": "aa:bb"}, {"mac": "cc:dd"}], "count": 2}`), nil
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/clients?limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	testutil.AssertLen(t, resp.Items, 2)

	// The caller's query string rides along to the vendor
	testutil.AssertLen(t, api.Calls, 1)
	testutil.AssertEqual(t, api.Calls[0].Path, "/monitoring/v1/clients")
	testutil.AssertEqual(t, api.Calls[0].Query.Get("limit"), "5")
}

func TestProxyHandler_Sites(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return json.RawMessage(`{"sites": [{"site_name": "HQ"}]}`), nil
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	testutil.AssertLen(t, resp.Items, 1)
	testutil.AssertEqual(t, api.CallPaths()[0], "/central/v2/sites")
}

func TestProxyHandler_Groups(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return json.RawMessage(`{"data": [{"group": "default"}, {"group": "branch"}], "total": 2}`), nil
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	testutil.AssertLen(t, resp.Items, 2)
	testutil.AssertEqual(t, api.CallPaths()[0], "/configuration/v2/groups")
}

func TestProxyHandler_WLANs(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return json.RawMessage(`{"wlan-ssids": [{"ssid": "corp"}, {"ssid": "guest"}]}`), nil
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/config/wlans", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	testutil.AssertLen(t, resp.Items, 2)
	testutil.AssertEqual(t, api.CallPaths()[0], "/network-config/v1alpha1/wlan-ssids")
}

func TestProxyHandler_GatewayVLANs(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return json.RawMessage(`{"vlans": [{"id": 10}, {"id": 20}, {"id": 30}]}`), nil
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/monitoring/gateways/GW9999/vlans", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	testutil.AssertLen(t, resp.Items, 3)
	testutil.AssertEqual(t, api.CallPaths()[0], "/configuration/v1/gateways/GW9999/vlans")
}

func TestProxyHandler_CreateWLAN(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	router := proxyRouter(NewProxyHandler(api))

	body := `{"ssid": "guest", "forward-mode": "tunnel", "vlan-id-range": [100]}`
	req := httptest.NewRequest(http.MethodPost, "/api/config/wlan/guest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	testutil.AssertLen(t, api.Calls, 1)
	testutil.AssertEqual(t, api.Calls[0].Method, "POST")
	testutil.AssertEqual(t, api.Calls[0].Path, "/network-config/v1alpha1/wlan-ssids/guest")

	forwarded, ok := api.Calls[0].Body.(json.RawMessage)
	testutil.AssertTrue(t, ok, "body should be forwarded verbatim")
	testutil.AssertEqual(t, string(forwarded), body)
}

func TestProxyHandler_CreateWLAN_InvalidBody(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodPost, "/api/config/wlan/guest", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertJSONError(t, w, http.StatusBadRequest, "Invalid request body")
	testutil.AssertLen(t, api.Calls, 0)
}

func TestProxyHandler_CreateWLAN_EscapesName(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodPost, "/api/config/wlan/guest%20wifi", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)
	testutil.AssertEqual(t, api.Calls[0].Path, "/network-config/v1alpha1/wlan-ssids/guest%20wifi")
}

func TestProxyHandler_DeleteWLAN(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodDelete, "/api/config/wlan/guest", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)

	testutil.AssertLen(t, api.Calls, 1)
	testutil.AssertEqual(t, api.Calls[0].Method, "DELETE")
	testutil.AssertEqual(t, api.Calls[0].Path, "/network-config/v1alpha1/wlan-ssids/guest")
}

func TestProxyHandler_DeleteWLAN_VendorNotFound(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.DeleteFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return nil, &central.UpstreamError{Status: http.StatusNotFound, Body: `{"error":"no such ssid"}`}
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodDelete, "/api/config/wlan/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Vendor 4xx pass through with their original status
	testutil.AssertJSONError(t, w, http.StatusNotFound, "Vendor API error")
}

func TestProxyHandler_PersistentUnauthorized(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return nil, &central.UpstreamError{Status: http.StatusUnauthorized, Body: "bad token"}
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Authentication failed")
}

func TestProxyHandler_VendorServerError(t *testing.T) {
	api := testutil.NewMockVendorAPI()
	api.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		return nil, &central.UpstreamError{Status: http.StatusServiceUnavailable, Body: "maintenance"}
	}
	router := proxyRouter(NewProxyHandler(api))

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Vendor 5xx are all reported as a bad gateway
	testutil.AssertJSONError(t, w, http.StatusBadGateway, "Vendor API error")
}

func TestUnwrapItems(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		keys    []string
		want    int
	}{
		{
			name:    "named key",
			payload: `{"clients": [1, 2, 3]}`,
			keys:    []string{"clients"},
			want:    3,
		},
		{
			name:    "items fallback",
			payload: `{"items": [1, 2]}`,
			keys:    []string{"clients"},
			want:    2,
		},
		{
			name:    "bare array",
			payload: `[1, 2, 3, 4]`,
			keys:    []string{"clients"},
			want:    4,
		},
		{
			name:    "first matching key wins",
			payload: `{"data": [1], "items": [1, 2]}`,
			keys:    []string{"data"},
			want:    1,
		},
		{
			name:    "no list anywhere",
			payload: `{"count": 7}`,
			keys:    []string{"clients"},
			want:    0,
		},
		{
			name:    "key holds a non-list",
			payload: `{"clients": "none"}`,
			keys:    []string{"clients"},
			want:    0,
		},
		{
			name:    "null payload",
			payload: `null`,
			keys:    []string{"clients"},
			want:    0,
		},
		{
			name:    "empty object",
			payload: `{}`,
			keys:    []string{"clients"},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := unwrapItems(json.RawMessage(tt.payload), tt.keys...)
			testutil.AssertNotNil(t, items)
			testutil.AssertLen(t, items, tt.want)
		})
	}
}
