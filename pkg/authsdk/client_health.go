package authsdk

import (
	"context"
	"net/http"
)

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*LivenessResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, "")
	if err != nil {
		return nil, err
	}

	var live LivenessResponse
	if err := decodeJSON(resp, &live, http.StatusOK); err != nil {
		return nil, err
	}
	return &live, nil
}

// GetHealth reports storage connectivity.
func (c *SDKClient) GetHealth(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil, "")
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
