package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kismetwireless/kismet-sub014/internal/channeltracker"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
	"github.com/kismetwireless/kismet-sub014/internal/devicetracker"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	bus := eventbus.New()
	return New(":0", datasource.NewTracker(nil), devicetracker.New(bus), channeltracker.New(), bus, nil, nil)
}

func TestHandleDot11Devices_ReturnsJSONArray(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/devices/views/phydot11/devices.json", nil)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleAllSources_EmptyFleet(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/datasource/all_sources.json", nil)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleDeviceByKey_UnknownReturns404(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/devices/by-key/aa:bb:cc:dd:ee:ff/1/device.json", nil)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSourceOpen_MissingDefinitionIsBadRequest(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/datasource/by-uuid/u1/open.cmd", nil)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseDeviceKey_RoundTrip(t *testing.T) {
	key, err := parseDeviceKey("aa:bb:cc:dd:ee:ff/1")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", key.MAC.String())
}

func TestHandleChannels_Empty(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/channels/channels.json", nil)
	rec := httptest.NewRecorder()

	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
