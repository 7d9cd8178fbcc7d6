/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
)

var testBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(_ *testing.T, options ...func(server *APIServer)) (*APIServer, *presence.Store) {
	store := presence.NewStore()

	opts := append([]func(server *APIServer){
		WithStore(store),
		WithLogger(logger.NewTestLogger()),
	}, options...)

	server := NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"*"}}, opts...)

	return server, store
}

// seedPresence witnesses two devices currently on ap1 and one device that
// associated on ap2 and then left.
func seedPresence(store *presence.Store) {
	events := []models.Event{
		{Host: "ap1", Interface: "wlan0", MAC: "aa:bb:cc:dd:ee:ff", Action: models.ActionAssociated, Timestamp: testBase},
		{Host: "ap1", Interface: "wlan1", MAC: "11:22:33:44:55:66", Action: models.ActionAssociated, Timestamp: testBase.Add(time.Minute)},
		{Host: "ap2", Interface: "wlan0", MAC: "de:ad:be:ef:00:01", Action: models.ActionAssociated, Timestamp: testBase.Add(2 * time.Minute)},
		{Host: "ap2", Interface: "wlan0", MAC: "de:ad:be:ef:00:01", Action: models.ActionDisassociated, Timestamp: testBase.Add(3 * time.Minute)},
	}

	for i := range events {
		store.Witness(&events[i])
	}
}

func doGet(server *APIServer, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()

	server.router.ServeHTTP(rr, req)

	return rr
}

func TestGetDevicesListsAllInAddressOrder(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Len(t, resp.Devices, 3)
	require.Equal(t, "11:22:33:44:55:66", resp.Devices[0].MAC)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", resp.Devices[1].MAC)
	require.Equal(t, "de:ad:be:ef:00:01", resp.Devices[2].MAC)

	require.True(t, resp.Devices[0].Online)
	require.True(t, resp.Devices[1].Online)
	require.False(t, resp.Devices[2].Online)
}

func TestGetDeviceLookupIsCaseInsensitive(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/mac/AA:BB:CC:DD:EE:FF")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.DeviceResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.NotNil(t, resp.Device)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", resp.Device.MAC)
	require.Equal(t, []models.Station{{Hostname: "ap1", Interface: "wlan0"}}, resp.Device.Stations)
}

func TestGetDeviceUnknownAddressReturnsNullDevice(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/mac/00:00:00:00:00:00")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.DeviceResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Nil(t, resp.Device)
}

func TestOnlineAndOfflineProjections(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/online")
	require.Equal(t, http.StatusOK, rr.Code)

	var online models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&online))
	require.Len(t, online.Devices, 2)

	rr = doGet(server, "/offline")
	require.Equal(t, http.StatusOK, rr.Code)

	var offline models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&offline))
	require.Len(t, offline.Devices, 1)
	require.Equal(t, "de:ad:be:ef:00:01", offline.Devices[0].MAC)
	require.Empty(t, offline.Devices[0].Stations)
	require.NotNil(t, offline.Devices[0].LastDisassociated)
}

func TestOfflineDeviceStationsSerializeAsEmptyArray(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/mac/de:ad:be:ef:00:01")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))

	var device map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["device"], &device))
	require.JSONEq(t, `[]`, string(device["stations"]))
}

func TestAccessPointListOnlyNamesActiveHosts(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/ap")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.AccessPointsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	// ap2's only device disassociated, so ap2 holds no associations.
	require.Equal(t, []string{"ap1"}, resp.AccessPoints)
}

func TestStationsGroupInterfacesByAccessPoint(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/stations")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.StationsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Equal(t, map[string][]string{
		"ap1": {"wlan0", "wlan1"},
	}, resp.Stations)
}

func TestDevicesByAccessPointInterfaceAndStation(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/ap/ap1")
	require.Equal(t, http.StatusOK, rr.Code)

	var byAP models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&byAP))
	require.Len(t, byAP.Devices, 2)

	rr = doGet(server, "/ap/ap1/wlan0")
	require.Equal(t, http.StatusOK, rr.Code)

	var byStation models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&byStation))
	require.Len(t, byStation.Devices, 1)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", byStation.Devices[0].MAC)

	rr = doGet(server, "/interface/wlan1")
	require.Equal(t, http.StatusOK, rr.Code)

	var byInterface models.DevicesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&byInterface))
	require.Len(t, byInterface.Devices, 1)
	require.Equal(t, "11:22:33:44:55:66", byInterface.Devices[0].MAC)
}

func TestDeviceMapGroupsOnlineDevicesByAccessPoint(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/map")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.DeviceMapResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Len(t, resp.DeviceMap, 1)
	require.Len(t, resp.DeviceMap["ap1"], 2)
}

func TestStationMapGroupsByAccessPointAndInterface(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/map/stations")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.StationMapResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Len(t, resp.StationMap, 1)
	require.Len(t, resp.StationMap["ap1"]["wlan0"], 1)
	require.Len(t, resp.StationMap["ap1"]["wlan1"], 1)
	require.Equal(t, "aa:bb:cc:dd:ee:ff", resp.StationMap["ap1"]["wlan0"][0].MAC)
}

func TestStatusReportsCountsAndLastEvent(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	rr := doGet(server, "/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Equal(t, 3, resp.Devices)
	require.Equal(t, 2, resp.Online)
	require.NotNil(t, resp.LastEvent)
	require.True(t, resp.LastEvent.Equal(testBase.Add(3*time.Minute)))
	require.GreaterOrEqual(t, resp.UptimeSeconds, int64(0))
}

func TestStatusOnEmptyStoreHasNoLastEvent(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doGet(server, "/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	require.Zero(t, resp.Devices)
	require.Zero(t, resp.Online)
	require.Nil(t, resp.LastEvent)
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doGet(server, "/no/such/route")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.Equal(t, "Not found", resp.Message)
}

func TestCORSHeadersAppliedForAllowedOrigin(t *testing.T) {
	server, store := newTestServer(t)
	seedPresence(store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://dashboard.example")

	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "http://dashboard.example", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSHeadersOmittedForDisallowedOrigin(t *testing.T) {
	store := presence.NewStore()
	server := NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"http://ok.example"}},
		WithStore(store),
		WithLogger(logger.NewTestLogger()),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")

	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCommonMiddlewareShortCircuitsPreflight(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		nextCalled = true
	})

	handler := CommonMiddleware(next, models.CORSConfig{AllowedOrigins: []string{"*"}}, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://dashboard.example")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, nextCalled)
	require.Equal(t, "http://dashboard.example", rr.Header().Get("Access-Control-Allow-Origin"))
}
