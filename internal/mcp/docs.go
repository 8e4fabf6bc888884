package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `panotour edits a virtual tour: a set of 360° rooms (scenes) joined by hotspots.

Core concepts:
- Room (scene): one equirectangular panorama with a title, a saved initial view (pitch, yaw, hfov) and hotspots.
- Link hotspot: moves the viewer to another room. Its label follows the destination's title.
- Info hotspot: shows a text note.
- Start room: where the tour opens. It falls back to the first room when missing.

Workflow:
1) Orient: call list_scenes (cheap) or get_project (full hotspot detail).
2) Build: add_scene for each panorama, then add_link_hotspot both ways between adjacent rooms.
3) Polish: save_view, rename_scene, set_start_scene, add_info_hotspot.
4) Ship: export_bundle writes a standalone zip; export_project writes a re-importable JSON file.

Every edit is autosaved shortly after it is made. Tool errors carry a code such as SCENE_NOT_FOUND or EXPORT_INCOMPLETE.

Docs:
- panotour://docs/index
- panotour://docs/hotspots
- panotour://docs/export
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "panotour://docs/index",
		Name:        "docs_index",
		Title:       "panotour docs index",
		Description: "Entry point: what each doc covers.",
		Content: `# panotour docs

- panotour://docs/hotspots: placing, retargeting and removing hotspots.
- panotour://docs/export: project JSON versus the standalone bundle.

Coordinates are degrees. Pitch runs from -90 (straight down) to 90 (straight up).
Yaw is the horizontal angle; 0 is the centre of the panorama image.
`,
	},
	{
		URI:         "panotour://docs/hotspots",
		Name:        "docs_hotspots",
		Title:       "Hotspots",
		Description: "Link and info hotspots: rules and recovery.",
		Content: `# Hotspots

## Link hotspots
- add_link_hotspot(scene_id, target_id, pitch, yaw). The target must exist and differ from scene_id.
- The label is the destination's title. Renaming the destination updates labels still showing the old title.
- update_hotspot with target_id retargets the link and relabels it.
- Deleting a room removes every link pointing at it.

## Info hotspots
- add_info_hotspot(scene_id, text, pitch, yaw). Text must not be blank.
- update_hotspot with text replaces the note.

## Errors
- SCENE_NOT_FOUND / HOTSPOT_NOT_FOUND: refresh ids with get_project.
- INVALID_INPUT: an argument is out of range or missing.
`,
	},
	{
		URI:         "panotour://docs/export",
		Name:        "docs_export",
		Title:       "Export formats",
		Description: "What export_project and export_bundle produce.",
		Content: `# Export formats

## Project JSON (export_project / import_project)
A single file with every image embedded as a data URL. Importing it replaces the current tour.
Rooms that only reference a remote image URL keep that URL.

## Bundle (export_bundle)
A zip that opens in any browser without this server:
- index.html, viewer.js, viewer.css: the player page.
- tour.json: rooms with image paths under images/.
- images/: one file per room.
- libs/: the panorama viewer library when configured.

## EXPORT_INCOMPLETE
A room has no image left in storage or in the project. Re-add the image or delete the room, then retry.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
