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

// Package hostapd decodes JSON-wrapped syslog lines and parses the hostapd
// station messages inside them.
package hostapd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Program is the syslog program name whose messages this package parses.
const Program = "hostapd"

var errMissingField = errors.New("envelope missing required field")

// Envelope is the fixed outer shape of one syslog line. Keys beyond the four
// required ones are ignored.
type Envelope struct {
	Host      string
	Program   string
	Timestamp time.Time
	Message   string
}

// Applicable reports whether the line came from the AP daemon. Lines from
// other programs decode fine but never produce events.
func (e *Envelope) Applicable() bool {
	return e.Program == Program
}

// rawEnvelope uses pointers so a missing key is distinguishable from a
// present-but-empty value; all four keys are required.
type rawEnvelope struct {
	Host      *string    `json:"host"`
	Program   *string    `json:"program"`
	Timestamp *time.Time `json:"timestamp"`
	Message   *string    `json:"message"`
}

// DecodeEnvelope parses one raw line. Failures here are per-line decode
// errors: the caller logs and drops the line, nothing more.
func DecodeEnvelope(line []byte) (*Envelope, error) {
	var raw rawEnvelope

	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	switch {
	case raw.Host == nil:
		return nil, fmt.Errorf("%w: host", errMissingField)
	case raw.Program == nil:
		return nil, fmt.Errorf("%w: program", errMissingField)
	case raw.Timestamp == nil:
		return nil, fmt.Errorf("%w: timestamp", errMissingField)
	case raw.Message == nil:
		return nil, fmt.Errorf("%w: message", errMissingField)
	}

	return &Envelope{
		Host:      *raw.Host,
		Program:   *raw.Program,
		Timestamp: *raw.Timestamp,
		Message:   *raw.Message,
	}, nil
}
