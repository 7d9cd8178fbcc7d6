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

package hostapd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/stationwatch/pkg/models"
)

// ErrUnrecognizedMessage marks a hostapd line that matched neither a station
// event nor a known-uninteresting pattern. Callers log these at error
// severity and drop the line.
var ErrUnrecognizedMessage = errors.New("unrecognized hostapd message")

// Message is the parsed payload of one hostapd station line.
type Message struct {
	Interface string
	MAC       string
	Action    models.Action
}

// alternatives are tried in order against the text after the hardware
// address; first match wins. The prefixes are mutually exclusive literals so
// order only matters for readability. An empty action is a recognized
// no-event line.
var alternatives = []struct {
	prefix string
	action models.Action
}{
	{"IEEE 802.11: associated", models.ActionAssociated},
	{"IEEE 802.11: disassociated", models.ActionDisassociated},
	{"WPA: pairwise key handshake completed (RSN)", models.ActionObserved},
	{"WPA: group key handshake completed (RSN)", models.ActionObserved},
	{"RADIUS: starting accounting session", ""},
}

// ParseMessage parses the free-text message of an applicable envelope.
// It returns (nil, nil) for recognized lines that carry no event, such as
// accounting-session notices.
func ParseMessage(msg string) (*Message, error) {
	iface, rest, found := strings.Cut(msg, ": ")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMessage, msg)
	}

	rest, found = strings.CutPrefix(rest, "STA ")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMessage, msg)
	}

	addr, tail, found := strings.Cut(rest, " ")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMessage, msg)
	}

	mac, err := CanonicalMAC(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnrecognizedMessage, msg, err)
	}

	for _, alt := range alternatives {
		if !strings.HasPrefix(tail, alt.prefix) {
			continue
		}

		if alt.action == "" {
			return nil, nil
		}

		return &Message{Interface: iface, MAC: mac, Action: alt.action}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedMessage, msg)
}

// ParseLine decodes one raw syslog line end to end. Results:
//
//	event, nil — an applicable line carrying a station event
//	nil, nil   — a line for another program, or a recognized no-event line
//	nil, err   — a decode failure, or ErrUnrecognizedMessage for grammar
//	             failures
func ParseLine(line []byte) (*models.Event, error) {
	env, err := DecodeEnvelope(line)
	if err != nil {
		return nil, err
	}

	if !env.Applicable() {
		return nil, nil
	}

	msg, err := ParseMessage(env.Message)
	if err != nil || msg == nil {
		return nil, err
	}

	return &models.Event{
		Host:      env.Host,
		Interface: msg.Interface,
		MAC:       msg.MAC,
		Action:    msg.Action,
		Timestamp: env.Timestamp,
	}, nil
}

const (
	macGroups     = 6
	macGroupWidth = 2
)

var errBadHardwareAddr = errors.New("bad hardware address")

// CanonicalMAC validates a colon-separated six-group hardware address and
// canonicalizes it to lowercase, so mixed-case reports of the same device
// collapse to one key.
func CanonicalMAC(s string) (string, error) {
	groups := strings.Split(s, ":")
	if len(groups) != macGroups {
		return "", fmt.Errorf("%w: %q", errBadHardwareAddr, s)
	}

	var b [macGroups]byte

	for i, g := range groups {
		if len(g) != macGroupWidth {
			return "", fmt.Errorf("%w: %q", errBadHardwareAddr, s)
		}

		v, err := strconv.ParseUint(g, 16, 8)
		if err != nil {
			return "", fmt.Errorf("%w: %q", errBadHardwareAddr, s)
		}

		b[i] = byte(v)
	}

	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5]), nil
}
