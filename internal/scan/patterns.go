package scan

import "regexp"

// Reference and tag patterns are compiled once at package load and shared
// by every scanner instance.
//
// refPattern matches the two reference forms in one pass: the
// parenthesized-link form `[label](target)` (target in group 2) and the
// double-bracket form `[[target]]` (target in group 3).
var (
	refPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)|\[\[([^\]]+)\]\]`)
	tagPattern = regexp.MustCompile(`#(\w+)`)
)

// extraction is the per-file parse result: raw (unresolved) reference
// targets and tags, both in order of appearance, duplicates preserved.
type extraction struct {
	refs []string
	tags []string
}

func extract(content string) extraction {
	var ex extraction
	for _, m := range refPattern.FindAllStringSubmatch(content, -1) {
		switch {
		case m[2] != "":
			ex.refs = append(ex.refs, m[2])
		case m[3] != "":
			ex.refs = append(ex.refs, m[3])
		}
	}
	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		ex.tags = append(ex.tags, m[1])
	}
	return ex
}
