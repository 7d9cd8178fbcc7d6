package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carverauto/stationwatch/pkg/models"
)

const requestTimeout = 5 * time.Second

var errUnexpectedStatus = fmt.Errorf("unexpected response status")

// apiClient is a minimal read-only client for the stationd HTTP API.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

func (c *apiClient) fetchDevices() ([]models.DeviceListItem, error) {
	var resp models.DevicesResponse
	if err := c.getJSON("/", &resp); err != nil {
		return nil, err
	}

	return resp.Devices, nil
}

func (c *apiClient) fetchStatus() (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.getJSON("/status", &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *apiClient) getJSON(path string, dst interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL+path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", errUnexpectedStatus, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
