// Package clipboard exposes the clipboard store as a service provider.
package clipboard

import (
	"context"
	"encoding/base64"
	"fmt"

	clip "github.com/happy-forks/ipcd/internal/clipboard"
	"github.com/happy-forks/ipcd/internal/object"
	"github.com/happy-forks/ipcd/internal/types"
)

// Provider implements clipboard operations over the in-process store.
type Provider struct {
	store *clip.Store
}

// NewProvider creates a clipboard provider.
func NewProvider(store *clip.Store) *Provider {
	return &Provider{store: store}
}

// Definition returns service metadata
func (c *Provider) Definition() types.Service {
	return types.Service{
		ID:          "clipboard",
		Name:        "Clipboard Service",
		Description: "Multi-format clipboard with history and subscription support",
		Category:    types.CategoryClipboard,
		Capabilities: []string{
			"copy",
			"paste",
			"history",
			"multi_format",
			"global_clipboard",
			"subscriptions",
			"statistics",
		},
		Tools: c.getTools(),
	}
}

func (c *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "clipboard.copy",
			Name:        "Copy to Clipboard",
			Description: "Copy data to clipboard with format specification",
			Parameters: []types.Parameter{
				{Name: "data", Type: "string", Description: "Data to copy (base64)", Required: true},
				{Name: "format", Type: "string", Description: "Data format (text, html, bytes, image/*)", Required: false},
				{Name: "global", Type: "boolean", Description: "Mirror text to the OS clipboard", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "clipboard.paste",
			Name:        "Paste from Clipboard",
			Description: "Retrieve the most recent clipboard entry",
			Parameters: []types.Parameter{
				{Name: "global", Type: "boolean", Description: "Read the OS clipboard instead", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "clipboard.history",
			Name:        "Get Clipboard History",
			Description: "Retrieve clipboard history entries, newest first",
			Parameters: []types.Parameter{
				{Name: "limit", Type: "number", Description: "Maximum number of entries", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "clipboard.get_entry",
			Name:        "Get Clipboard Entry",
			Description: "Retrieve specific clipboard entry by ID",
			Parameters: []types.Parameter{
				{Name: "entry_id", Type: "number", Description: "Entry ID to retrieve", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "clipboard.clear",
			Name:        "Clear Clipboard",
			Description: "Clear clipboard history",
			Parameters: []types.Parameter{
				{Name: "global", Type: "boolean", Description: "Also empty the OS clipboard", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "clipboard.subscribe",
			Name:        "Subscribe to Changes",
			Description: "Subscribe to clipboard change notifications",
			Parameters: []types.Parameter{
				{Name: "formats", Type: "array", Description: "Format filters (empty = all formats)", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "clipboard.unsubscribe",
			Name:        "Unsubscribe from Changes",
			Description: "Unsubscribe from clipboard change notifications",
			Parameters:  []types.Parameter{},
			Returns:     "boolean",
		},
		{
			ID:          "clipboard.stats",
			Name:        "Get Clipboard Statistics",
			Description: "Retrieve clipboard usage statistics",
			Parameters:  []types.Parameter{},
			Returns:     "object",
		},
	}
}

// Execute runs a clipboard operation
func (c *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "clipboard.copy":
		return c.copy(params)
	case "clipboard.paste":
		return c.paste(params)
	case "clipboard.history":
		return c.history(params)
	case "clipboard.get_entry":
		return c.getEntry(params)
	case "clipboard.clear":
		return c.clear(params)
	case "clipboard.subscribe":
		return c.subscribe(params, appCtx)
	case "clipboard.unsubscribe":
		return c.unsubscribe(appCtx)
	case "clipboard.stats":
		return c.stats()
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (c *Provider) copy(params map[string]interface{}) (*types.Result, error) {
	raw, ok := params["data"].(string)
	if !ok || raw == "" {
		return failure("data parameter required")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return failure(fmt.Sprintf("data must be base64: %v", err))
	}

	format := ""
	if f, ok := params["format"].(string); ok {
		format = f
	}
	global := false
	if g, ok := params["global"].(bool); ok {
		global = g
	}

	entryID, err := c.store.Copy(data, format, global)
	if err != nil {
		return failure(fmt.Sprintf("copy failed: %v", err))
	}

	return success(map[string]interface{}{
		"copied":   true,
		"entry_id": entryID,
		"format":   format,
		"global":   global,
		"seq":      c.store.Seq(),
	})
}

func (c *Provider) paste(params map[string]interface{}) (*types.Result, error) {
	global := false
	if g, ok := params["global"].(bool); ok {
		global = g
	}

	entry, err := c.store.Paste(global)
	if err != nil {
		if object.ShouldRetry(err) {
			return failure("clipboard is empty")
		}
		return failure(fmt.Sprintf("paste failed: %v", err))
	}

	return success(entryData(entry))
}

func (c *Provider) history(params map[string]interface{}) (*types.Result, error) {
	limit := 0
	if l, ok := params["limit"].(float64); ok {
		limit = int(l)
	}

	entries := c.store.History(limit)
	out := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		out[i] = entryData(e)
	}

	return success(map[string]interface{}{
		"entries": out,
		"count":   len(out),
	})
}

func (c *Provider) getEntry(params map[string]interface{}) (*types.Result, error) {
	entryID, ok := params["entry_id"].(float64)
	if !ok {
		return failure("entry_id parameter required")
	}

	entry, err := c.store.GetEntry(uint64(entryID))
	if err != nil {
		return failure(fmt.Sprintf("entry %d not found", uint64(entryID)))
	}

	return success(entryData(entry))
}

func (c *Provider) clear(params map[string]interface{}) (*types.Result, error) {
	global := false
	if g, ok := params["global"].(bool); ok {
		global = g
	}

	if err := c.store.Clear(global); err != nil {
		return failure(fmt.Sprintf("clear failed: %v", err))
	}

	return success(map[string]interface{}{"cleared": true})
}

func (c *Provider) subscribe(params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	subscriber := subscriberID(appCtx)
	if subscriber == "" {
		return failure("subscriber identity required")
	}

	formats := []string{}
	if f, ok := params["formats"].([]interface{}); ok {
		for _, format := range f {
			if str, ok := format.(string); ok {
				formats = append(formats, str)
			}
		}
	}

	c.store.Subscribe(subscriber, formats)
	return success(map[string]interface{}{"subscribed": true})
}

func (c *Provider) unsubscribe(appCtx *types.Context) (*types.Result, error) {
	subscriber := subscriberID(appCtx)
	if subscriber == "" {
		return failure("subscriber identity required")
	}

	c.store.Unsubscribe(subscriber)
	return success(map[string]interface{}{"unsubscribed": true})
}

func (c *Provider) stats() (*types.Result, error) {
	return success(c.store.Stats())
}

func entryData(e *clip.Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":         e.ID,
		"data":       base64.StdEncoding.EncodeToString(e.Data),
		"format":     e.Format,
		"global":     e.Global,
		"created_at": e.CreatedAt,
	}
}

func subscriberID(appCtx *types.Context) string {
	if appCtx == nil {
		return ""
	}
	if appCtx.AppID != nil && *appCtx.AppID != "" {
		return *appCtx.AppID
	}
	if appCtx.UserID != nil && *appCtx.UserID != "" {
		return *appCtx.UserID
	}
	return ""
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    data,
	}, nil
}

func failure(message string) (*types.Result, error) {
	errMsg := message
	return &types.Result{
		Success: false,
		Error:   &errMsg,
	}, fmt.Errorf("%s", message)
}
