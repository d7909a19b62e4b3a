package gemini

import (
	"context"
	"fmt"
	"strings"

	"learnemg/internal/models"

	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

// preferredModels is tried in order before the substring fallbacks.
var preferredModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-latest",
	"gemini-2.0-flash-001",
	"gemini-1.5-flash-latest",
	"gemini-1.5-flash",
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-pro",
}

// ListModels returns the models that can serve generateContent.
func (c *Client) ListModels(ctx context.Context) ([]models.AIModel, error) {
	key, _ := c.credentials()
	if key == "" {
		return nil, ErrMissingCredential
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var body []byte
	opts := append(c.requestOptions(key), option.WithQuery("pageSize", "1000"))
	if err := c.api.Get(ctx, "models", nil, &body, opts...); err != nil {
		return nil, normalizeError(err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode model list: invalid JSON")
	}

	var out []models.AIModel
	gjson.GetBytes(body, "models").ForEach(func(_, m gjson.Result) bool {
		if methods := m.Get("supportedGenerationMethods"); methods.Exists() {
			ok := false
			for _, v := range methods.Array() {
				if v.String() == "generateContent" {
					ok = true
					break
				}
			}
			if !ok {
				return true
			}
		}
		id := strings.TrimPrefix(m.Get("name").String(), "models/")
		if id == "" {
			return true
		}
		out = append(out, models.AIModel{
			ID:          id,
			Name:        m.Get("displayName").String(),
			Description: m.Get("description").String(),
		})
		return true
	})
	return out, nil
}

// DiscoverWorkingModel picks the best available model id, or "" when none
// looks usable.
func (c *Client) DiscoverWorkingModel(ctx context.Context) (string, error) {
	available, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(available))
	for i, m := range available {
		ids[i] = m.ID
	}
	best := RankModels(ids)
	c.log.Info("model discovery", "candidates", len(ids), "picked", best)
	return best, nil
}

// RankModels applies the fixed preference order, then any flash model, then
// any gemini model.
func RankModels(ids []string) string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	for _, want := range preferredModels {
		if present[want] {
			return want
		}
	}
	for _, sub := range []string{"flash", "gemini"} {
		for _, id := range ids {
			if strings.Contains(id, sub) {
				return id
			}
		}
	}
	return ""
}
