package agent

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newAgentSession scans a small fixture vault and returns the ready session:
// two linked notes (one with a dangling reference), an untagged note, and an
// image in a subdirectory.
func newAgentSession(t *testing.T) *session.Session {
	t.Helper()
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/vault/A.md":        "[link](B.md) [gone](missing.md) #core #core #extra",
		"/vault/B.md":        "[[A.md]] #extra",
		"/vault/C.md":        "no references here",
		"/vault/img/pic.png": "\x89PNG",
	})
	sess, err := session.NewSession("/vault", nil, session.WithScanOptions(scan.WithFilesystem(fs)))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	require.NoError(t, sess.Start(""))
	sess.Wait()
	require.NoError(t, sess.Err())
	return sess
}

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// textOf unwraps a successful tool result.
func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

// errorOf unwraps a tool-error result. Handlers report failures in-band,
// never as transport errors.
func errorOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestAgent_ScanStats(t *testing.T) {
	sess := newAgentSession(t)

	res, err := scanStatsHandler(sess)(context.Background(), callReq(nil))
	require.NoError(t, err)

	text := textOf(t, res)
	assert.Contains(t, text, "root: /vault\n")
	assert.Contains(t, text, "files: 4\n")
	assert.Contains(t, text, "images: 1\n")
	assert.Contains(t, text, "tagged files: 2\n")
	assert.Contains(t, text, "references: 3\n")
	assert.Contains(t, text, "distinct tags: 2\n")
}

func TestAgent_Neighbors(t *testing.T) {
	sess := newAgentSession(t)
	handle := neighborsHandler(sess)

	res, err := handle(context.Background(), callReq(map[string]any{"path": "/vault/A.md"}))
	require.NoError(t, err)
	// The dangling missing.md reference never becomes an edge.
	assert.Equal(t, "/vault/B.md\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"path": "/vault/C.md"}))
	require.NoError(t, err)
	assert.Equal(t, "No results.", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"path": "/vault/nope.md"}))
	require.NoError(t, err)
	assert.Equal(t, "unknown path: /vault/nope.md", errorOf(t, res))
}

func TestAgent_Backlinks(t *testing.T) {
	sess := newAgentSession(t)
	handle := backlinksHandler(sess)

	res, err := handle(context.Background(), callReq(map[string]any{"path": "/vault/A.md"}))
	require.NoError(t, err)
	assert.Equal(t, "/vault/B.md\n", textOf(t, res))

	// Images are reference-view nodes too, just never sources.
	res, err = handle(context.Background(), callReq(map[string]any{"path": "/vault/img/pic.png"}))
	require.NoError(t, err)
	assert.Equal(t, "No results.", textOf(t, res))
}

func TestAgent_TagsOf(t *testing.T) {
	sess := newAgentSession(t)
	handle := tagsOfHandler(sess)

	// Duplicates collapse; first-appearance order survives.
	res, err := handle(context.Background(), callReq(map[string]any{"path": "/vault/A.md"}))
	require.NoError(t, err)
	assert.Equal(t, "core\nextra\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"path": "/vault/C.md"}))
	require.NoError(t, err)
	assert.Equal(t, "No results.", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"path": "/vault/nope.md"}))
	require.NoError(t, err)
	assert.Equal(t, "unknown path: /vault/nope.md", errorOf(t, res))
}

func TestAgent_Tagged(t *testing.T) {
	sess := newAgentSession(t)
	handle := taggedHandler(sess)

	res, err := handle(context.Background(), callReq(map[string]any{"tag": "extra"}))
	require.NoError(t, err)
	assert.Equal(t, "/vault/A.md\n/vault/B.md\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"tag": "core"}))
	require.NoError(t, err)
	assert.Equal(t, "/vault/A.md\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"tag": "bogus"}))
	require.NoError(t, err)
	assert.Equal(t, "unknown tag: bogus", errorOf(t, res))
}

func TestAgent_Dangling(t *testing.T) {
	sess := newAgentSession(t)

	res, err := danglingHandler(sess)(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.Equal(t, "/vault/A.md -> /vault/missing.md\n", textOf(t, res))
}

func TestAgent_Search(t *testing.T) {
	sess := newAgentSession(t)
	handle := searchHandler(sess)

	// Case-insensitive, files in sorted path order.
	res, err := handle(context.Background(), callReq(map[string]any{"query": "MD"}))
	require.NoError(t, err)
	assert.Equal(t, "file:/vault/A.md\nfile:/vault/B.md\nfile:/vault/C.md\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"query": "CORE"}))
	require.NoError(t, err)
	assert.Equal(t, "tag:core\n", textOf(t, res))

	res, err = handle(context.Background(), callReq(map[string]any{"query": "zzz"}))
	require.NoError(t, err)
	assert.Equal(t, "No results.", textOf(t, res))
}

func TestAgent_MissingArguments(t *testing.T) {
	sess := newAgentSession(t)

	for name, handle := range map[string]func() (*mcp.CallToolResult, error){
		"neighbors": func() (*mcp.CallToolResult, error) {
			return neighborsHandler(sess)(context.Background(), callReq(nil))
		},
		"backlinks": func() (*mcp.CallToolResult, error) {
			return backlinksHandler(sess)(context.Background(), callReq(nil))
		},
		"tags_of": func() (*mcp.CallToolResult, error) {
			return tagsOfHandler(sess)(context.Background(), callReq(nil))
		},
		"tagged": func() (*mcp.CallToolResult, error) {
			return taggedHandler(sess)(context.Background(), callReq(nil))
		},
		"search": func() (*mcp.CallToolResult, error) {
			return searchHandler(sess)(context.Background(), callReq(nil))
		},
	} {
		res, err := handle()
		require.NoError(t, err, name)
		assert.True(t, res.IsError, name)
	}
}

func TestAgent_NewServer(t *testing.T) {
	sess := newAgentSession(t)
	require.NotNil(t, NewServer(sess, "test"))
}
