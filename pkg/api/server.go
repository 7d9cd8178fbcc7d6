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

// Package api provides the HTTP read surface over the presence store
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/carverauto/stationwatch/pkg/events"
	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
)

// APIServer serves the presence query routes, the daemon status route and the
// websocket event stream. Every route is read-only; the ingest pipeline is the
// sole writer to the store.
type APIServer struct {
	router     *mux.Router
	store      *presence.Store
	hub        *events.Hub
	corsConfig models.CORSConfig
	logger     logger.Logger
	started    time.Time

	mu  sync.Mutex
	srv *http.Server
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		started:    time.Now(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithStore sets the presence store queried by the API server
func WithStore(store *presence.Store) func(server *APIServer) {
	return func(server *APIServer) {
		server.store = store
	}
}

// WithHub sets the event hub backing the websocket stream route
func WithHub(hub *events.Hub) func(server *APIServer) {
	return func(server *APIServer) {
		server.hub = hub
	}
}

// WithLogger sets the logger for the API server
func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// setupRoutes configures the HTTP routes for the API server.
func (s *APIServer) setupRoutes() {
	s.setupMiddleware()
	s.setupDeviceRoutes()
	s.setupMapRoutes()
	s.setupOpsRoutes()

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
}

// setupMiddleware configures CORS and request-logging middleware.
func (s *APIServer) setupMiddleware() {
	corsConfig := models.CORSConfig{
		AllowedOrigins:   s.corsConfig.AllowedOrigins,
		AllowCredentials: s.corsConfig.AllowCredentials,
	}

	middlewareChain := func(next http.Handler) http.Handler {
		return CommonMiddleware(next, corsConfig, s.logger)
	}

	s.router.Use(middlewareChain)
}

func (s *APIServer) setupDeviceRoutes() {
	s.router.HandleFunc("/", s.getDevices).Methods("GET")
	s.router.HandleFunc("/mac/{mac}", s.getDevice).Methods("GET")
	s.router.HandleFunc("/online", s.getOnlineDevices).Methods("GET")
	s.router.HandleFunc("/offline", s.getOfflineDevices).Methods("GET")
	s.router.HandleFunc("/ap", s.getAccessPoints).Methods("GET")
	s.router.HandleFunc("/ap/{ap}", s.getDevicesByAccessPoint).Methods("GET")
	s.router.HandleFunc("/ap/{ap}/{interface}", s.getDevicesByStation).Methods("GET")
	s.router.HandleFunc("/interface/{interface}", s.getDevicesByInterface).Methods("GET")
	s.router.HandleFunc("/stations", s.getStations).Methods("GET")
}

func (s *APIServer) setupMapRoutes() {
	s.router.HandleFunc("/map", s.getDeviceMap).Methods("GET")
	s.router.HandleFunc("/map/stations", s.getStationMap).Methods("GET")
}

func (s *APIServer) setupOpsRoutes() {
	s.router.HandleFunc("/status", s.getStatus).Methods("GET")
	s.router.HandleFunc("/events/stream", s.handleEventStream).Methods("GET")
}

// @Summary List all devices
// @Description Retrieves every device ever witnessed, online or not, in hardware-address order
// @Tags Devices
// @Produce json
// @Success 200 {object} models.DevicesResponse "All witnessed devices"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router / [get]
func (s *APIServer) getDevices(w http.ResponseWriter, _ *http.Request) {
	s.respondDevices(w, s.store.Devices())
}

// @Summary Look up one device
// @Description Retrieves a single device by hardware address; the address is matched case-insensitively. A device that was never witnessed yields a null body, not an error.
// @Tags Devices
// @Produce json
// @Param mac path string true "Hardware address"
// @Success 200 {object} models.DeviceResponse "The device, or null if never witnessed"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /mac/{mac} [get]
func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	device := s.store.Get(vars["mac"])

	if err := s.encodeJSONResponse(w, models.DeviceResponse{Device: device}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode device response")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary List online devices
// @Description Retrieves the devices currently associated with at least one access point
// @Tags Devices
// @Produce json
// @Success 200 {object} models.DevicesResponse "Online devices"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /online [get]
func (s *APIServer) getOnlineDevices(w http.ResponseWriter, _ *http.Request) {
	s.respondDevices(w, s.store.OnlineDevices())
}

// @Summary List offline devices
// @Description Retrieves the devices that were witnessed at some point but hold no current association
// @Tags Devices
// @Produce json
// @Success 200 {object} models.DevicesResponse "Offline devices"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /offline [get]
func (s *APIServer) getOfflineDevices(w http.ResponseWriter, _ *http.Request) {
	s.respondDevices(w, s.store.OfflineDevices())
}

// @Summary List access points
// @Description Retrieves the hostnames that currently hold at least one association
// @Tags Stations
// @Produce json
// @Success 200 {object} models.AccessPointsResponse "Access points"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /ap [get]
func (s *APIServer) getAccessPoints(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, models.AccessPointsResponse{AccessPoints: s.store.AccessPoints()}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode access point list")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary List devices on an access point
// @Description Retrieves the devices currently associated anywhere on the named access point
// @Tags Devices
// @Produce json
// @Param ap path string true "Access point hostname"
// @Success 200 {object} models.DevicesResponse "Devices on the access point"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /ap/{ap} [get]
func (s *APIServer) getDevicesByAccessPoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.respondDevices(w, s.store.DevicesByHostname(vars["ap"]))
}

// @Summary List devices on one station
// @Description Retrieves the devices currently associated with the exact access point and interface pair
// @Tags Devices
// @Produce json
// @Param ap path string true "Access point hostname"
// @Param interface path string true "Wireless interface"
// @Success 200 {object} models.DevicesResponse "Devices on the station"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /ap/{ap}/{interface} [get]
func (s *APIServer) getDevicesByStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.respondDevices(w, s.store.DevicesByStation(vars["ap"], vars["interface"]))
}

// @Summary List devices on an interface
// @Description Retrieves the devices currently associated on the named interface, regardless of access point
// @Tags Devices
// @Produce json
// @Param interface path string true "Wireless interface"
// @Success 200 {object} models.DevicesResponse "Devices on the interface"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /interface/{interface} [get]
func (s *APIServer) getDevicesByInterface(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.respondDevices(w, s.store.DevicesByInterface(vars["interface"]))
}

// @Summary List stations
// @Description Retrieves the active interfaces grouped by access point hostname
// @Tags Stations
// @Produce json
// @Success 200 {object} models.StationsResponse "Interfaces by access point"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /stations [get]
func (s *APIServer) getStations(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, models.StationsResponse{Stations: s.store.Stations()}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode station list")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary Map devices by access point
// @Description Retrieves the online devices grouped by access point hostname
// @Tags Maps
// @Produce json
// @Success 200 {object} models.DeviceMapResponse "Devices by access point"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /map [get]
func (s *APIServer) getDeviceMap(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, models.DeviceMapResponse{DeviceMap: s.store.DeviceMap()}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode device map")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary Map devices by station
// @Description Retrieves the online devices grouped by access point hostname and interface
// @Tags Maps
// @Produce json
// @Success 200 {object} models.StationMapResponse "Devices by access point and interface"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /map/stations [get]
func (s *APIServer) getStationMap(w http.ResponseWriter, _ *http.Request) {
	if err := s.encodeJSONResponse(w, models.StationMapResponse{StationMap: s.store.StationMap()}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode station map")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// @Summary Daemon status
// @Description Retrieves uptime, device counts, the last event timestamp and process resource usage
// @Tags Status
// @Produce json
// @Success 200 {object} models.StatusResponse "Daemon status"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /status [get]
func (s *APIServer) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultTimeout)
	defer cancel()

	status := models.StatusResponse{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Devices:       s.store.DeviceCount(),
		Online:        s.store.OnlineCount(),
		LastEvent:     s.store.LastEventTimestamp(),
	}

	if vmStats, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Memory collection failed; reporting zeroes")
	} else {
		status.MemoryUsedPercent = vmStats.UsedPercent
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err != nil {
		s.logger.Warn().Err(err).Msg("Process lookup failed; reporting zeroes")
	} else {
		if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil {
			status.ProcessResidentBytes = memInfo.RSS
		}

		if cpuPercent, err := proc.CPUPercentWithContext(ctx); err == nil {
			status.CPUPercent = cpuPercent
		}
	}

	if err := s.encodeJSONResponse(w, status); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status response")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *APIServer) respondDevices(w http.ResponseWriter, devices []models.DeviceListItem) {
	if err := s.encodeJSONResponse(w, models.DevicesResponse{Devices: devices}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode device list")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// encodeJSONResponse encodes a response as JSON
func (*APIServer) encodeJSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return err
	}

	return nil
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		// Fallback in case encoding fails
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultTimeout      = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Start starts the API server on the specified address
func (s *APIServer) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,  // Timeout for reading the entire request, including the body.
		WriteTimeout: defaultWriteTimeout, // Timeout for writing the response.
		IdleTimeout:  defaultIdleTimeout,  // Timeout for idle connections waiting in the Keep-Alive state.
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	return srv.ListenAndServe()
}

// Shutdown stops a started server, waiting for in-flight requests up to the
// context deadline. Calling it before Start is a no-op.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
