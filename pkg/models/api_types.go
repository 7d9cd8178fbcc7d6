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

package models

import "time"

// ErrorResponse represents an API error response
// @Description Error information returned from the API
type ErrorResponse struct {
	// The error message
	Message string `json:"message" example:"Invalid request parameters"`
	// The HTTP status code
	Status int `json:"status" example:"400"`
}

// DevicesResponse wraps a device listing.
// @Description A list of witnessed devices
type DevicesResponse struct {
	Devices []DeviceListItem `json:"devices"`
}

// DeviceResponse wraps a single device lookup. Device is null when the
// address was never witnessed; the lookup itself still succeeds.
// @Description A single device, or null if never witnessed
type DeviceResponse struct {
	Device *DeviceListItem `json:"device"`
}

// StationsResponse maps each access point to its active interfaces.
// @Description Active interfaces grouped by access point
type StationsResponse struct {
	Stations map[string][]string `json:"stations"`
}

// AccessPointsResponse lists the access points with at least one current
// association.
// @Description Access points with current associations
type AccessPointsResponse struct {
	AccessPoints []string `json:"access_points"`
}

// DeviceMapResponse groups online devices by access point.
// @Description Online devices grouped by access point
type DeviceMapResponse struct {
	DeviceMap map[string][]DeviceSummary `json:"device_map"`
}

// StationMapResponse groups online devices by access point and interface.
// @Description Online devices grouped by access point and interface
type StationMapResponse struct {
	StationMap map[string]map[string][]DeviceSummary `json:"station_map"`
}

// StatusResponse reports daemon health for operators.
// @Description Daemon runtime status
type StatusResponse struct {
	UptimeSeconds        int64      `json:"uptime_seconds"`
	Devices              int        `json:"devices"`
	Online               int        `json:"online"`
	LastEvent            *time.Time `json:"last_event"`
	MemoryUsedPercent    float64    `json:"memory_used_percent"`
	ProcessResidentBytes uint64     `json:"process_resident_bytes"`
	CPUPercent           float64    `json:"cpu_percent"`
}
