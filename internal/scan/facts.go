package scan

// Facts is the scanner's durable output: everything the graph builders need,
// keyed by absolute cleaned file path. A Facts value handed out by the
// scanner is immutable — rescans build a fresh Facts and swap it in
// wholesale, so holders of an old snapshot are never raced.
type Facts struct {
	// Files maps every scanned file (text and image alike) to its resolved
	// outbound reference targets, in order of appearance. Images and
	// reference-free text files map to an empty list.
	Files map[string][]string
	// Images lists image paths in traversal order.
	Images []string
	// Tags maps files with at least one tag to their tags, in order of
	// appearance, duplicates preserved.
	Tags map[string][]string
}

// NewFacts returns an empty fact set.
func NewFacts() *Facts {
	return &Facts{
		Files: make(map[string][]string),
		Tags:  make(map[string][]string),
	}
}

// Stats summarizes a fact set.
type Stats struct {
	Files        int // scanned files, images included
	Images       int
	TaggedFiles  int
	References   int // resolved reference targets, dangling included
	DistinctTags int
}

// Stats computes summary counts for the fact set.
func (f *Facts) Stats() Stats {
	st := Stats{
		Files:       len(f.Files),
		Images:      len(f.Images),
		TaggedFiles: len(f.Tags),
	}
	for _, refs := range f.Files {
		st.References += len(refs)
	}
	seen := make(map[string]struct{})
	for _, tags := range f.Tags {
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	st.DistinctTags = len(seen)
	return st
}

// IsImage reports whether the path was classified as an image.
func (f *Facts) IsImage(path string) bool {
	for _, p := range f.Images {
		if p == path {
			return true
		}
	}
	return false
}
