package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paymesh/paymesh/types"
)

// HTTPNodeCaller dispatches tasks and notifications to node endpoints as
// JSON over HTTP. Tasks go to <endpoint>/tasks, notifications to
// <endpoint>/notify.
type HTTPNodeCaller struct {
	client *http.Client
}

// NewHTTPNodeCaller builds a caller with the given request timeout.
func NewHTTPNodeCaller(timeout time.Duration) *HTTPNodeCaller {
	return &HTTPNodeCaller{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPNodeCaller) SubmitTask(ctx context.Context, node types.AgentNode, payload map[string]any) (*types.NodeResponse, error) {
	body, err := c.post(ctx, node.Endpoint+"/tasks", payload)
	if err != nil {
		return nil, err
	}

	var resp types.NodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding node response: %w", err)
	}
	return &resp, nil
}

func (c *HTTPNodeCaller) Notify(ctx context.Context, node types.AgentNode, payload map[string]any) error {
	_, err := c.post(ctx, node.Endpoint+"/notify", payload)
	return err
}

func (c *HTTPNodeCaller) post(ctx context.Context, url string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("node returned status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
