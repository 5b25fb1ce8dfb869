package graph

import (
	"sort"
	"strings"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
)

// BuildReference builds the reference view: one node per file known to the
// scanner (images included, linked or not), one directed edge per resolved
// reference whose target is itself a known file. Dangling references are
// dropped silently. Duplicate references yield duplicate edges.
//
// The builder is pure: identical facts produce value-identical views, node
// arena in sorted path order.
func BuildReference(f *scan.Facts) *View {
	v := newView(len(f.Files))

	paths := sortedKeys(f.Files)
	for _, p := range paths {
		v.addNode(FileNode(p))
	}
	for _, p := range paths {
		from := v.index[FileNode(p)]
		for _, target := range f.Files[p] {
			if to, ok := v.index[FileNode(target)]; ok {
				v.addEdge(from, to)
			}
		}
	}
	return v
}

// TagOptions filter the tag view. Filter keeps only tags containing the
// substring (and the files they point at); ShowImages gates the
// unconditional image nodes.
type TagOptions struct {
	Filter     string
	ShowImages bool
}

// DefaultTagOptions shows everything.
func DefaultTagOptions() TagOptions {
	return TagOptions{ShowImages: true}
}

// BuildTag builds the tag view: one node per file with at least one
// surviving tag, one node per image (unconditionally, unless filtered out
// by ShowImages), one node per distinct surviving tag, and one directed
// edge per distinct (tag, file) pair, tag→file. Files with zero tags are
// absent entirely — unlike the reference view, this is not an
// every-file-is-a-node graph.
func BuildTag(f *scan.Facts, opts TagOptions) *View {
	keep := func(tag string) bool {
		return opts.Filter == "" || strings.Contains(tag, opts.Filter)
	}

	// Files in sorted order, each with its surviving tags deduplicated in
	// order of appearance.
	taggedPaths := make([]string, 0, len(f.Tags))
	survivors := make(map[string][]string, len(f.Tags))
	for path, tags := range f.Tags {
		seen := make(map[string]struct{}, len(tags))
		var kept []string
		for _, tag := range tags {
			if !keep(tag) {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			kept = append(kept, tag)
		}
		if len(kept) > 0 {
			taggedPaths = append(taggedPaths, path)
			survivors[path] = kept
		}
	}
	sort.Strings(taggedPaths)

	v := newView(len(taggedPaths) + len(f.Images))
	for _, p := range taggedPaths {
		v.addNode(FileNode(p))
	}
	if opts.ShowImages {
		images := append([]string(nil), f.Images...)
		sort.Strings(images)
		for _, p := range images {
			v.addNode(FileNode(p))
		}
	}
	for _, p := range taggedPaths {
		to := v.index[FileNode(p)]
		for _, tag := range survivors[p] {
			from := v.addNode(TagNode(tag))
			v.addEdge(from, to)
		}
	}
	return v
}
