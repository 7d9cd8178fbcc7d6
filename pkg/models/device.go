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

// Action classifies what a hostapd log line tells us about a device.
type Action string

const (
	// ActionAssociated means the device completed an IEEE 802.11 association.
	ActionAssociated Action = "associated"
	// ActionDisassociated means the device left the access point.
	ActionDisassociated Action = "disassociated"
	// ActionObserved means the device was seen alive (WPA key handshake)
	// without a change in association state.
	ActionObserved Action = "observed"
)

// Event is one fully decoded hostapd log line: the envelope context plus the
// parsed message payload. Events are the only input to the presence store.
type Event struct {
	Host      string    `json:"host"`
	Interface string    `json:"interface"`
	MAC       string    `json:"mac"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Station identifies one access-point radio: the hostname that emitted the
// log line and the wireless interface named in it. Two stations are equal iff
// both fields are equal.
type Station struct {
	Hostname  string `json:"hostname"`
	Interface string `json:"interface"`
}

// Less orders stations by hostname, then interface. Listing code relies on
// this to keep station sets in a stable order.
func (s Station) Less(other Station) bool {
	if s.Hostname != other.Hostname {
		return s.Hostname < other.Hostname
	}

	return s.Interface < other.Interface
}

// Device is the per-hardware-address presence record. Stations holds the
// current associations and is kept sorted and duplicate-free; the last_*
// timestamps track the most recent event of each kind.
type Device struct {
	Stations          []Station  `json:"stations"`
	LastAssociated    *time.Time `json:"last_associated"`
	LastDisassociated *time.Time `json:"last_disassociated"`
	LastObserved      *time.Time `json:"last_observed"`
}

// Online reports whether the device is currently associated anywhere.
func (d *Device) Online() bool {
	return len(d.Stations) > 0
}

// DeviceListItem is the wire shape of one device in list and lookup
// responses: the canonical hardware address, the flattened device record and
// a derived online flag.
type DeviceListItem struct {
	MAC string `json:"hardware_ethernet"`
	Device
	Online bool `json:"online"`
}

// DeviceSummary is the reduced device shape used by the grouped map
// projections, where the station set is redundant with the grouping key.
type DeviceSummary struct {
	MAC               string     `json:"hardware_ethernet"`
	LastAssociated    *time.Time `json:"last_associated"`
	LastDisassociated *time.Time `json:"last_disassociated"`
	LastObserved      *time.Time `json:"last_observed"`
}
