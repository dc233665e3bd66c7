package mediaengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamforge/channelctl/internal/channel"
	"github.com/streamforge/channelctl/internal/logging"
)

// HTTPClient implements Client against a JSON/HTTP media engine, following
// the teacher's request/response idiom in lib/acexy/acexy.go's
// GetStream/CloseStream: build a *http.Request, run it through a shared
// *http.Client, read the body, unmarshal, and surface an `error` field on
// the response as a Go error.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// NewHTTPClient builds a client against baseURL (e.g.
// "http://engine.internal:8090"). httpClient may be nil, in which case
// http.DefaultClient is used.
func NewHTTPClient(baseURL string, httpClient *http.Client, log logging.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient, log: log}
}

type createChannelWireRequest struct {
	ContentID          string               `json:"contentId"`
	Classification     string               `json:"classification"`
	SourceURI          string               `json:"sourceUri"`
	IngestPool         string               `json:"ingestPool"`
	EgressPool         string               `json:"egressPool"`
	AbrLadder          string               `json:"abrLadder"`
	OutputBucket       string               `json:"outputBucket"`
	ManifestPath       string               `json:"manifestPath"`
	CacheKey           string               `json:"cacheKey"`
	DRM                any                  `json:"drm,omitempty"`
	AvailabilityWindow any                  `json:"availabilityWindow,omitempty"`
	GeoRestrictions    any                  `json:"geoRestrictions,omitempty"`
	Metadata           map[string]string    `json:"metadata"`
}

type channelWireResponse struct {
	ChannelID       string `json:"channelId"`
	ManifestPath    string `json:"manifestPath"`
	OriginEndpoint  string `json:"originEndpoint"`
	PlaybackBaseURL string `json:"playbackBaseUrl"`
	ProfileHash     string `json:"profileHash"`
	Error           string `json:"error"`
}

func (c *HTTPClient) CreateChannel(ctx context.Context, req channel.ProvisioningRequest) (channel.ProvisioningResult, error) {
	wireReq := createChannelWireRequest{
		ContentID:          req.ContentID,
		Classification:     string(req.Classification),
		SourceURI:          req.SourceURI,
		IngestPool:         req.IngestPool,
		EgressPool:         req.EgressPool,
		AbrLadder:          req.AbrLadder,
		OutputBucket:       req.OutputBucket,
		ManifestPath:       req.ManifestPath,
		CacheKey:           req.CacheKey,
		DRM:                req.DRM,
		AvailabilityWindow: req.AvailabilityWindow,
		GeoRestrictions:    req.GeoRestrictions,
		Metadata:           req.Metadata,
	}

	var resp channelWireResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/channels", wireReq, &resp); err != nil {
		return channel.ProvisioningResult{}, err
	}
	if resp.Error != "" {
		return channel.ProvisioningResult{}, fmt.Errorf("mediaengine: createChannel %q: %s", req.ContentID, resp.Error)
	}

	return channel.ProvisioningResult{
		ChannelID:       resp.ChannelID,
		ManifestPath:    resp.ManifestPath,
		OriginEndpoint:  resp.OriginEndpoint,
		PlaybackBaseURL: resp.PlaybackBaseURL,
		ProfileHash:     resp.ProfileHash,
	}, nil
}

func (c *HTTPClient) DeleteChannel(ctx context.Context, channelID string) error {
	var resp channelWireResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/channels/"+channelID, nil, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("mediaengine: deleteChannel %q: %s", channelID, resp.Error)
	}
	return nil
}

func (c *HTTPClient) RotateIngestKey(ctx context.Context, channelID string) error {
	var resp channelWireResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/channels/"+channelID+"/rotate-ingest-key", nil, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("mediaengine: rotateIngestKey %q: %s", channelID, resp.Error)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mediaengine: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("mediaengine: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	c.log.Debug("mediaengine: request", "method", method, "path", path, "requestId", requestID)
	res, err := c.http.Do(req)
	if err != nil {
		// Transport failures (dial/timeout/reset) are retryable.
		return Transient(fmt.Errorf("mediaengine: do request: %w", err))
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return Transient(fmt.Errorf("mediaengine: read response: %w", err))
	}

	if res.StatusCode >= http.StatusInternalServerError {
		// 5xx is the engine's own failure, not the request's — retryable.
		return Transient(fmt.Errorf("mediaengine: server error %d: %s", res.StatusCode, string(respBody)))
	}
	if res.StatusCode >= http.StatusBadRequest {
		// 4xx means the request itself is malformed; retrying it would only
		// reproduce the same error, so it is terminal, not transient.
		return fmt.Errorf("mediaengine: client error %d: %s", res.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("mediaengine: unmarshal response: %w", err)
	}
	return nil
}
