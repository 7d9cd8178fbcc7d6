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

// Package presence holds the authoritative in-memory index of which device is
// associated with which access point. One writer applies events through
// Witness in log order; any number of readers run the query projections
// concurrently. Every access serializes through a single exclusive lock, so a
// query never observes a partially applied event.
package presence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/stationwatch/pkg/models"
)

// Store maps canonical hardware addresses to device records. Devices are
// created lazily on first witness and never evicted; the map only grows for
// the process lifetime.
type Store struct {
	mu        sync.Mutex
	devices   map[string]*models.Device
	lastEvent *time.Time
}

// NewStore returns an empty presence store.
func NewStore() *Store {
	return &Store{
		devices: make(map[string]*models.Device),
	}
}

// Witness applies one parsed event to the index. Associated and Observed
// record the station on the device; Disassociated removes it, matching by
// exact (hostname, interface) equality. The per-kind last_* timestamp and the
// store-wide last event timestamp are always overwritten with the event's
// timestamp, even when an earlier-stamped event arrives later: arrival order
// is log order, and log order wins.
func (s *Store) Witness(event *models.Event) {
	if event == nil {
		return
	}

	station := models.Station{Hostname: event.Host, Interface: event.Interface}

	s.mu.Lock()
	defer s.mu.Unlock()

	device := s.devices[event.MAC]
	if device == nil {
		device = &models.Device{}
		s.devices[event.MAC] = device
	}

	ts := event.Timestamp

	switch event.Action {
	case models.ActionAssociated:
		device.LastAssociated = &ts
		insertStation(device, station)
	case models.ActionObserved:
		device.LastObserved = &ts
		insertStation(device, station)
	case models.ActionDisassociated:
		device.LastDisassociated = &ts
		removeStation(device, station)
	}

	last := event.Timestamp
	s.lastEvent = &last
}

// insertStation adds a station to the device's sorted set; inserting a member
// already present is a no-op.
func insertStation(device *models.Device, station models.Station) {
	i := sort.Search(len(device.Stations), func(i int) bool {
		return !device.Stations[i].Less(station)
	})

	if i < len(device.Stations) && device.Stations[i] == station {
		return
	}

	device.Stations = append(device.Stations, models.Station{})
	copy(device.Stations[i+1:], device.Stations[i:])
	device.Stations[i] = station
}

// removeStation drops a station from the device's sorted set; removing a
// non-member is a no-op.
func removeStation(device *models.Device, station models.Station) {
	i := sort.Search(len(device.Stations), func(i int) bool {
		return !device.Stations[i].Less(station)
	})

	if i >= len(device.Stations) || device.Stations[i] != station {
		return
	}

	device.Stations = append(device.Stations[:i], device.Stations[i+1:]...)
}

// Get retrieves the device view for a hardware address, or nil if the address
// was never witnessed. The lookup canonicalizes the address to lowercase so
// callers may pass any casing.
func (s *Store) Get(address string) *models.DeviceListItem {
	key := strings.ToLower(strings.TrimSpace(address))

	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.devices[key]
	if !ok {
		return nil
	}

	item := listItem(key, device)

	return &item
}

// Devices returns all known devices ordered by hardware address.
func (s *Store) Devices() []models.DeviceListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(nil)
}

// OnlineDevices returns the devices with a non-empty station set, ordered by
// hardware address.
func (s *Store) OnlineDevices() []models.DeviceListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(func(d *models.Device) bool { return d.Online() })
}

// OfflineDevices returns the devices with an empty station set, ordered by
// hardware address.
func (s *Store) OfflineDevices() []models.DeviceListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(func(d *models.Device) bool { return !d.Online() })
}

// DevicesByHostname returns the devices with at least one current station on
// the given access point, ordered by hardware address.
func (s *Store) DevicesByHostname(hostname string) []models.DeviceListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(func(d *models.Device) bool { return hasHostname(d, hostname) })
}

// DevicesByInterface returns the devices with at least one current station on
// the given interface, regardless of access point, ordered by hardware
// address.
func (s *Store) DevicesByInterface(iface string) []models.DeviceListItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(func(d *models.Device) bool { return hasInterface(d, iface) })
}

// DevicesByStation returns the devices currently on the exact
// (hostname, interface) station, ordered by hardware address.
func (s *Store) DevicesByStation(hostname, iface string) []models.DeviceListItem {
	station := models.Station{Hostname: hostname, Interface: iface}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(func(d *models.Device) bool { return hasStation(d, station) })
}

// AccessPoints returns the sorted distinct hostnames across all current
// stations.
func (s *Store) AccessPoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})

	for _, device := range s.devices {
		for _, station := range device.Stations {
			seen[station.Hostname] = struct{}{}
		}
	}

	hosts := make([]string, 0, len(seen))
	for host := range seen {
		hosts = append(hosts, host)
	}

	sort.Strings(hosts)

	return hosts
}

// Stations returns, for each access point with current associations, the
// sorted distinct interfaces active under it.
func (s *Store) Stations() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]map[string]struct{})

	for _, device := range s.devices {
		for _, station := range device.Stations {
			ifaces := seen[station.Hostname]
			if ifaces == nil {
				ifaces = make(map[string]struct{})
				seen[station.Hostname] = ifaces
			}

			ifaces[station.Interface] = struct{}{}
		}
	}

	out := make(map[string][]string, len(seen))

	for host, ifaces := range seen {
		list := make([]string, 0, len(ifaces))
		for iface := range ifaces {
			list = append(list, iface)
		}

		sort.Strings(list)
		out[host] = list
	}

	return out
}

// DeviceMap groups the currently online devices by access-point hostname.
// Each hostname maps to address-ordered device summaries; a device associated
// on two interfaces of the same access point appears once under it.
func (s *Store) DeviceMap() map[string][]models.DeviceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]models.DeviceSummary)

	for _, addr := range s.sortedAddrsLocked() {
		device := s.devices[addr]

		hosts := make(map[string]struct{})
		for _, station := range device.Stations {
			hosts[station.Hostname] = struct{}{}
		}

		for host := range hosts {
			out[host] = append(out[host], summarize(addr, device))
		}
	}

	return out
}

// StationMap groups the currently online devices by access-point hostname and
// interface. Each leaf list is ordered by hardware address.
func (s *Store) StationMap() map[string]map[string][]models.DeviceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string][]models.DeviceSummary)

	for _, addr := range s.sortedAddrsLocked() {
		device := s.devices[addr]

		for _, station := range device.Stations {
			byIface := out[station.Hostname]
			if byIface == nil {
				byIface = make(map[string][]models.DeviceSummary)
				out[station.Hostname] = byIface
			}

			byIface[station.Interface] = append(byIface[station.Interface], summarize(addr, device))
		}
	}

	return out
}

// LastEventTimestamp returns the timestamp of the most recent witnessed event
// of any kind, or nil if nothing has been witnessed yet. The watchdog reads
// this to detect a stale input stream.
func (s *Store) LastEventTimestamp() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneTime(s.lastEvent)
}

// DeviceCount returns the number of devices ever witnessed.
func (s *Store) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.devices)
}

// OnlineCount returns the number of devices currently online.
func (s *Store) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, device := range s.devices {
		if device.Online() {
			count++
		}
	}

	return count
}

func (s *Store) listLocked(match func(*models.Device) bool) []models.DeviceListItem {
	out := make([]models.DeviceListItem, 0, len(s.devices))

	for _, addr := range s.sortedAddrsLocked() {
		device := s.devices[addr]
		if match != nil && !match(device) {
			continue
		}

		out = append(out, listItem(addr, device))
	}

	return out
}

func (s *Store) sortedAddrsLocked() []string {
	addrs := make([]string, 0, len(s.devices))
	for addr := range s.devices {
		addrs = append(addrs, addr)
	}

	sort.Strings(addrs)

	return addrs
}

func hasHostname(device *models.Device, hostname string) bool {
	for _, station := range device.Stations {
		if station.Hostname == hostname {
			return true
		}
	}

	return false
}

func hasInterface(device *models.Device, iface string) bool {
	for _, station := range device.Stations {
		if station.Interface == iface {
			return true
		}
	}

	return false
}

func hasStation(device *models.Device, station models.Station) bool {
	for _, s := range device.Stations {
		if s == station {
			return true
		}
	}

	return false
}

// listItem builds a defensive copy of a device for callers; returned values
// never alias store internals.
func listItem(addr string, device *models.Device) models.DeviceListItem {
	return models.DeviceListItem{
		MAC:    addr,
		Device: *cloneDevice(device),
		Online: device.Online(),
	}
}

func summarize(addr string, device *models.Device) models.DeviceSummary {
	return models.DeviceSummary{
		MAC:               addr,
		LastAssociated:    cloneTime(device.LastAssociated),
		LastDisassociated: cloneTime(device.LastDisassociated),
		LastObserved:      cloneTime(device.LastObserved),
	}
}

func cloneDevice(src *models.Device) *models.Device {
	dst := &models.Device{
		// Kept non-nil so an offline device serializes as "stations": [].
		Stations:          append(make([]models.Station, 0, len(src.Stations)), src.Stations...),
		LastAssociated:    cloneTime(src.LastAssociated),
		LastDisassociated: cloneTime(src.LastDisassociated),
		LastObserved:      cloneTime(src.LastObserved),
	}

	return dst
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
