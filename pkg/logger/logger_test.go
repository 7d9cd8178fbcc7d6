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

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	log, err := New(&Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}

	if log == nil {
		t.Fatal("New returned a nil logger")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "shouty"})
	if err == nil {
		t.Error("Expected error for an unknown level")
	}
}

func TestWithComponentField(t *testing.T) {
	var buf bytes.Buffer

	log := NewWriterLogger(&buf)

	componentLogger := log.WithComponent("hostapd")
	componentLogger.Info().Msg("parsed line")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Log output is not JSON: %v", err)
	}

	if entry["component"] != "hostapd" {
		t.Errorf("Expected component hostapd, got %v", entry["component"])
	}

	if entry["message"] != "parsed line" {
		t.Errorf("Expected message to survive, got %v", entry["message"])
	}
}

func TestNewWithComponent(t *testing.T) {
	log, err := NewWithComponent("watchdog", &Config{Level: "info"})
	if err != nil {
		t.Fatalf("Failed to build component logger: %v", err)
	}

	if log == nil {
		t.Fatal("NewWithComponent returned a nil logger")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level == "" {
		t.Error("Default config should have a level set")
	}

	if config.Output == "" {
		t.Error("Default config should have an output set")
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{
			name:     "string duration",
			input:    `"5s"`,
			expected: Duration(5 * time.Second),
		},
		{
			name:     "numeric duration (nanoseconds)",
			input:    `5000000000`,
			expected: Duration(5 * time.Second),
		},
		{
			name:     "complex duration string",
			input:    `"1h30m45s"`,
			expected: Duration(1*time.Hour + 30*time.Minute + 45*time.Second),
		},
		{
			name:    "invalid duration string",
			input:   `"invalid"`,
			wantErr: true,
		},
		{
			name:    "invalid type",
			input:   `true`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}

				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if d != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, d)
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer

	mw := NewMultiWriter(&a, &b)

	if _, err := mw.Write([]byte("hello")); err != nil {
		t.Fatalf("MultiWriter.Write failed: %v", err)
	}

	if a.String() != "hello" || b.String() != "hello" {
		t.Errorf("Both writers should receive the payload, got %q and %q", a.String(), b.String())
	}
}

func TestStringifyAttrTruncates(t *testing.T) {
	long := strings.Repeat("x", maxAttributeValueLength+100)

	got := stringifyAttr(long)
	if len(got) != maxAttributeValueLength {
		t.Errorf("Expected truncation to %d bytes, got %d", maxAttributeValueLength, len(got))
	}

	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated attribute should end with ellipsis")
	}
}
