// Package agent exposes a scanned vault to MCP clients over stdio. Every
// tool is a read-only lookup against the session's current facts; results
// are compact text, one item per line.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/graph"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
)

// NewServer builds an MCP server with every vault tool registered.
func NewServer(sess *session.Session, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nexusview",
		version,
		server.WithToolCapabilities(true),
	)
	registerTools(s, sess)
	return s
}

func registerTools(s *server.MCPServer, sess *session.Session) {
	s.AddTool(scanStatsTool(), scanStatsHandler(sess))
	s.AddTool(neighborsTool(), neighborsHandler(sess))
	s.AddTool(backlinksTool(), backlinksHandler(sess))
	s.AddTool(tagsOfTool(), tagsOfHandler(sess))
	s.AddTool(taggedTool(), taggedHandler(sess))
	s.AddTool(danglingTool(), danglingHandler(sess))
	s.AddTool(searchTool(), searchHandler(sess))
}

// --- scan_stats ---

func scanStatsTool() mcp.Tool {
	return mcp.NewTool("scan_stats",
		mcp.WithDescription("Summary counts for the scanned vault: files, images, tagged files, references, distinct tags."),
	)
}

func scanStatsHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st := sess.Snapshot().Stats()
		var sb strings.Builder
		fmt.Fprintf(&sb, "root: %s\n", sess.Root())
		fmt.Fprintf(&sb, "files: %d\n", st.Files)
		fmt.Fprintf(&sb, "images: %d\n", st.Images)
		fmt.Fprintf(&sb, "tagged files: %d\n", st.TaggedFiles)
		fmt.Fprintf(&sb, "references: %d\n", st.References)
		fmt.Fprintf(&sb, "distinct tags: %d\n", st.DistinctTags)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- neighbors ---

func neighborsTool() mcp.Tool {
	return mcp.NewTool("neighbors",
		mcp.WithDescription("Files a given file references, one path per line. Dangling references are excluded; use the dangling tool for those."),
		mcp.WithString("path",
			mcp.Description("Absolute path of a scanned file"),
			mcp.Required(),
		),
	)
}

func neighborsHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}
		view := sess.Reference()
		node := graph.FileNode(path)
		if _, ok := view.Lookup(node); !ok {
			return toolError(fmt.Errorf("unknown path: %s", path))
		}
		return formatLines(nodePaths(view.Neighbors(node)))
	}
}

// --- backlinks ---

func backlinksTool() mcp.Tool {
	return mcp.NewTool("backlinks",
		mcp.WithDescription("Files that reference a given file, one path per line."),
		mcp.WithString("path",
			mcp.Description("Absolute path of a scanned file"),
			mcp.Required(),
		),
	)
}

func backlinksHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}
		view := sess.Reference()
		node := graph.FileNode(path)
		if _, ok := view.Lookup(node); !ok {
			return toolError(fmt.Errorf("unknown path: %s", path))
		}
		return formatLines(nodePaths(view.Backlinks(node)))
	}
}

// --- tags_of ---

func tagsOfTool() mcp.Tool {
	return mcp.NewTool("tags_of",
		mcp.WithDescription("Tags of a file, one per line, in order of first appearance."),
		mcp.WithString("path",
			mcp.Description("Absolute path of a scanned file"),
			mcp.Required(),
		),
	)
}

func tagsOfHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}
		facts := sess.Snapshot()
		if _, ok := facts.Files[path]; !ok {
			return toolError(fmt.Errorf("unknown path: %s", path))
		}
		seen := make(map[string]struct{})
		var tags []string
		for _, tag := range facts.Tags[path] {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
		return formatLines(tags)
	}
}

// --- tagged ---

func taggedTool() mcp.Tool {
	return mcp.NewTool("tagged",
		mcp.WithDescription("Files carrying a tag, one path per line."),
		mcp.WithString("tag",
			mcp.Description("Tag name, without the # prefix"),
			mcp.Required(),
		),
	)
}

func taggedHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag := req.GetString("tag", "")
		if tag == "" {
			return toolError(fmt.Errorf("tag is required"))
		}
		view := sess.Tag(graph.DefaultTagOptions())
		if _, ok := view.Lookup(graph.TagNode(tag)); !ok {
			return toolError(fmt.Errorf("unknown tag: %s", tag))
		}
		return formatLines(view.Members(tag))
	}
}

// --- dangling ---

func danglingTool() mcp.Tool {
	return mcp.NewTool("dangling",
		mcp.WithDescription("References whose target was not scanned, as 'source -> target' lines."),
	)
}

func danglingHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		facts := sess.Snapshot()
		var lines []string
		for _, src := range sortedPaths(facts.Files) {
			for _, dst := range facts.Files[src] {
				if _, known := facts.Files[dst]; !known {
					lines = append(lines, src+" -> "+dst)
				}
			}
		}
		return formatLines(lines)
	}
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Case-insensitive substring search over file paths and tag names. Matches are prefixed with their kind, e.g. 'file:' or 'tag:'."),
		mcp.WithString("query",
			mcp.Description("Search query"),
			mcp.Required(),
		),
	)
}

func searchHandler(sess *session.Session) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.ToLower(req.GetString("query", ""))
		if query == "" {
			return toolError(fmt.Errorf("query is required"))
		}
		facts := sess.Snapshot()

		var lines []string
		for _, path := range sortedPaths(facts.Files) {
			if strings.Contains(strings.ToLower(path), query) {
				lines = append(lines, graph.FileNode(path).String())
			}
		}
		for _, tag := range distinctTags(facts.Tags) {
			if strings.Contains(strings.ToLower(tag), query) {
				lines = append(lines, graph.TagNode(tag).String())
			}
		}
		return formatLines(lines)
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatLines(lines []string) (*mcp.CallToolResult, error) {
	if len(lines) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func nodePaths(nodes []graph.Node) []string {
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, n.Name)
	}
	return paths
}

func sortedPaths(files map[string][]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func distinctTags(tagged map[string][]string) []string {
	seen := make(map[string]struct{})
	for _, tags := range tagged {
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
