package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// CloudBackend is the Cloud variant of LMBackend. Grounded directly on
// pkg/providers/llm/anthropic.go's request/response shape, generalized to
// accept the umebot.Message tagged content-part form for multimodal input
// (the teacher's own client only ever sent plain strings).
type CloudBackend struct {
	apiKey string
	model  string
	url    string
}

// NewCloudBackend constructs a CloudBackend. An empty model falls back to
// the teacher's own default.
func NewCloudBackend(apiKey, model string) *CloudBackend {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &CloudBackend{apiKey: apiKey, model: model, url: "https://api.anthropic.com/v1/messages"}
}

func (c *CloudBackend) Name() string { return "cloud_" + c.model }

func (c *CloudBackend) Generate(ctx context.Context, messages []umebot.Message) (string, error) {
	var system string
	var anthropicMessages []map[string]interface{}

	for _, msg := range messages {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		if len(msg.Parts) > 0 {
			var parts []map[string]interface{}
			for _, p := range msg.Parts {
				switch p.Type {
				case "text":
					parts = append(parts, map[string]interface{}{"type": "text", "text": p.Text})
				case "image_url":
					parts = append(parts, map[string]interface{}{
						"type":   "image",
						"source": map[string]string{"type": "url", "url": p.ImageURL},
					})
				}
			}
			anthropicMessages = append(anthropicMessages, map[string]interface{}{"role": msg.Role, "content": parts})
			continue
		}
		anthropicMessages = append(anthropicMessages, map[string]interface{}{"role": msg.Role, "content": msg.Content})
	}

	payload := map[string]interface{}{
		"model":      c.model,
		"messages":   anthropicMessages,
		"max_tokens": 1024,
	}
	if system != "" {
		payload["system"] = system
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("cloud backend error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned from cloud backend")
	}
	return result.Content[0].Text, nil
}
