package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client implements Source against the feeder cloud REST API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient creates a cloud client with the given base URL and API token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiResponse is the common envelope: returnCode 0 means success.
type apiResponse struct {
	ReturnCode int             `json:"returnCode"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func (c *Client) FetchDevices(ctx context.Context) ([]DeviceInfo, error) {
	var data struct {
		Devices []DeviceInfo `json:"devices"`
	}
	if err := c.get(ctx, "token/device/union/list/sorted", nil, &data); err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}
	return data.Devices, nil
}

func (c *Client) FetchFeederDetail(ctx context.Context, deviceID string) (FeederDetail, error) {
	var data struct {
		DeviceInfo FeederDetail `json:"deviceInfo"`
	}
	params := map[string]string{"deviceId": deviceID}
	if err := c.get(ctx, "token/device/feederpro/detail", params, &data); err != nil {
		return FeederDetail{}, fmt.Errorf("fetch feeder detail %s: %w", deviceID, err)
	}
	return data.DeviceInfo, nil
}

func (c *Client) FetchFeedLogs(ctx context.Context, deviceID string) ([]FeedLog, error) {
	var data struct {
		Logs []FeedLog `json:"feederLogTop5"`
	}
	params := map[string]string{"deviceId": deviceID}
	if err := c.get(ctx, "token/device/feederpro/stats/log/top5", params, &data); err != nil {
		return nil, fmt.Errorf("fetch feed logs %s: %w", deviceID, err)
	}
	return data.Logs, nil
}

func (c *Client) SwitchMode(ctx context.Context, deviceID, mode string, foodOutCount int) error {
	body := map[string]any{
		"deviceId":         deviceID,
		"feederproRunMode": mode,
		"foodOutCount":     foodOutCount,
	}
	if err := c.post(ctx, "token/device/feederpro/switchMode/v2", body); err != nil {
		return fmt.Errorf("switch mode %s: %w", deviceID, err)
	}
	return nil
}

func (c *Client) SetFoodOutCount(ctx context.Context, deviceID string, count int) error {
	body := map[string]any{
		"deviceId":     deviceID,
		"foodOutCount": count,
	}
	if err := c.post(ctx, "token/device/feederpro/switchMode/v2", body); err != nil {
		return fmt.Errorf("set food out count %s: %w", deviceID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, api string, params map[string]string, out any) error {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, api)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, api string, body map[string]any) error {
	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, api)
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("token", c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.ReturnCode != 0 {
		return fmt.Errorf("api error %d: %s", envelope.ReturnCode, envelope.Msg)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
