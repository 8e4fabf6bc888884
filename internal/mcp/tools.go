package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolDefinition describes one tool in the catalog.
type toolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

var (
	sceneIDProp   = str("Room (scene) id")
	hotspotIDProp = str("Hotspot id")
	pitchProp     = num("Vertical angle in degrees, -90 to 90")
	yawProp       = num("Horizontal angle in degrees")
)

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []toolDefinition {
	return []toolDefinition{
		// Reading
		{
			Name:        "get_project",
			Description: "Get the tour: metadata, start room and every room with its hotspots (image payloads omitted)",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        "list_scenes",
			Description: "List rooms with their saved view, hotspot count and media reference",
			InputSchema: object(map[string]any{}),
		},

		// Rooms
		{
			Name:        "add_scene",
			Description: "Add a room from an equirectangular image. The title and id come from the file name",
			InputSchema: object(map[string]any{
				"path": str("Local image file to read"),
				"data": str("Image bytes as base64 or a data: URL, used when path is not set"),
				"name": str("File name used for the title when data is given"),
			}),
		},
		{
			Name:        "rename_scene",
			Description: "Change a room's title; link labels that showed the old title follow",
			InputSchema: object(map[string]any{
				"scene_id": sceneIDProp,
				"title":    str("New title"),
			}, "scene_id", "title"),
		},
		{
			Name:        "delete_scene",
			Description: "Delete a room and every link hotspot pointing at it",
			InputSchema: object(map[string]any{"scene_id": sceneIDProp}, "scene_id"),
		},
		{
			Name:        "set_start_scene",
			Description: "Choose the room the tour opens in",
			InputSchema: object(map[string]any{"scene_id": sceneIDProp}, "scene_id"),
		},
		{
			Name:        "save_view",
			Description: "Store the initial orientation used when entering a room",
			InputSchema: object(map[string]any{
				"scene_id": sceneIDProp,
				"pitch":    pitchProp,
				"yaw":      yawProp,
				"hfov":     num("Horizontal field of view in degrees, above 0 and below 360"),
			}, "scene_id", "pitch", "yaw", "hfov"),
		},

		// Hotspots
		{
			Name:        "add_link_hotspot",
			Description: "Place a hotspot that moves the viewer to another room",
			InputSchema: object(map[string]any{
				"scene_id":  sceneIDProp,
				"target_id": str("Destination room id"),
				"pitch":     pitchProp,
				"yaw":       yawProp,
			}, "scene_id", "target_id", "pitch", "yaw"),
		},
		{
			Name:        "add_info_hotspot",
			Description: "Place a hotspot that shows a text note",
			InputSchema: object(map[string]any{
				"scene_id": sceneIDProp,
				"text":     str("Note text"),
				"pitch":    pitchProp,
				"yaw":      yawProp,
			}, "scene_id", "text", "pitch", "yaw"),
		},
		{
			Name:        "move_hotspot",
			Description: "Move a hotspot to a new position",
			InputSchema: object(map[string]any{
				"scene_id":   sceneIDProp,
				"hotspot_id": hotspotIDProp,
				"pitch":      pitchProp,
				"yaw":        yawProp,
			}, "scene_id", "hotspot_id", "pitch", "yaw"),
		},
		{
			Name:        "update_hotspot",
			Description: "Change a hotspot's text or, for links, its destination room",
			InputSchema: object(map[string]any{
				"scene_id":   sceneIDProp,
				"hotspot_id": hotspotIDProp,
				"text":       str("New text"),
				"target_id":  str("New destination room id (link hotspots only)"),
			}, "scene_id", "hotspot_id"),
		},
		{
			Name:        "delete_hotspot",
			Description: "Remove a hotspot",
			InputSchema: object(map[string]any{
				"scene_id":   sceneIDProp,
				"hotspot_id": hotspotIDProp,
			}, "scene_id", "hotspot_id"),
		},

		// Project files
		{
			Name:        "new_project",
			Description: "Discard the current tour and start an empty one",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        "import_project",
			Description: "Replace the current tour with a project JSON file",
			InputSchema: object(map[string]any{
				"path": str("Local project JSON file"),
				"json": str("Project JSON text, used when path is not set"),
			}),
		},
		{
			Name:        "export_project",
			Description: "Export the tour as self-contained project JSON with images embedded",
			InputSchema: object(map[string]any{
				"path": str("Write to this file instead of returning the JSON"),
			}),
		},
		{
			Name:        "export_bundle",
			Description: "Write a standalone zip with a viewer page, tour.json and every room image",
			InputSchema: object(map[string]any{
				"path": str("Destination .zip file"),
			}, "path"),
		},
	}
}

func registerTools(server *sdkmcp.Server, h *Handler, logger *slog.Logger) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := h.Handle(ctx, name, args)
			if err != nil {
				logger.Debug("tool failed", "tool", name, "error", err)
				return errorResult(err), nil
			}
			return textResult(result)
		})
	}
}

func textResult(v any) (*sdkmcp.CallToolResult, error) {
	var text string
	switch val := v.(type) {
	case json.RawMessage:
		text = string(val)
	default:
		data, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
	}, nil
}

func errorResult(err error) *sdkmcp.CallToolResult {
	body := MapError(err)
	if body == nil {
		body = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, _ := json.Marshal(body)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
