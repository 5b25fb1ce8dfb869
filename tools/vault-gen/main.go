// vault-gen writes a synthetic note vault for exercising nexusview against
// something larger than a test fixture: nested markdown notes that
// cross-reference each other in both link syntaxes, tags drawn from a small
// pool, a sprinkling of dangling references, images, and a hidden directory
// that default scans must skip.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	tagPool    = []string{"inbox", "project", "idea", "todo", "archive", "ref", "daily", "draft"}
	topicPool  = []string{"alpha", "beta", "gamma", "delta"}
	imageExts  = []string{".png", ".jpg", ".gif", ".webp"}
	imageStamp = []byte("\x89PNG\r\n\x1a\nnot-really-an-image")
)

func main() {
	outDir := flag.String("out", "vault", "Output directory")
	notes := flag.Int("notes", 200, "Number of notes")
	images := flag.Int("images", 12, "Number of images")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	paths := make([]string, *notes)
	for i := range paths {
		name := fmt.Sprintf("n%03d.md", i)
		if rng.Intn(3) > 0 {
			name = filepath.Join("topics", topicPool[rng.Intn(len(topicPool))], name)
		}
		paths[i] = name
	}

	for i, rel := range paths {
		var sb strings.Builder
		fmt.Fprintf(&sb, "# Note %03d\n\n", i)
		for r := rng.Intn(5); r > 0; r-- {
			// Targets are vault-relative: that is what resolves.
			target := paths[rng.Intn(len(paths))]
			if rng.Intn(10) == 0 {
				target = fmt.Sprintf("missing-%d.md", rng.Intn(50)) // dangling
			}
			if rng.Intn(2) == 0 {
				fmt.Fprintf(&sb, "See [note](%s).\n", target)
			} else {
				fmt.Fprintf(&sb, "See [[%s]].\n", target)
			}
		}
		for t := rng.Intn(4); t > 0; t-- {
			fmt.Fprintf(&sb, "#%s ", tagPool[rng.Intn(len(tagPool))])
		}
		sb.WriteString("\n")
		write(filepath.Join(*outDir, rel), []byte(sb.String()))
	}

	for i := 0; i < *images; i++ {
		name := fmt.Sprintf("assets/img%02d%s", i, imageExts[rng.Intn(len(imageExts))])
		write(filepath.Join(*outDir, name), imageStamp)
	}

	// A hidden directory the scanner should not enter by default.
	write(filepath.Join(*outDir, ".obsidian", "workspace.json"), []byte("{}\n"))

	fmt.Printf("Generated %d notes and %d images under %s.\n", *notes, *images, *outDir)
}

func write(path string, content []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
