package engine_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tasknest/tasknest/internal/engine"
)

// Example_basicUsage runs two passes over a folder: the first ingests the
// existing files, the second finds nothing changed.
func Example_basicUsage() {
	dir, err := os.MkdirTemp("", "example-vault")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	content := "---\ntitle: Water the plants\nstatus: todo\n---\nEvery shelf.\n"
	if err := os.WriteFile(filepath.Join(dir, "20260301-0900-water-the-plants.md"), []byte(content), 0o644); err != nil {
		log.Fatal(err)
	}

	eng := engine.New(dir, nil)
	ctx := context.Background()

	summary, events, state, err := eng.Run(ctx, engine.NewState())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("first pass: ingested=%d events=%d\n", summary.Ingested, len(events))

	for _, ev := range events {
		if created, ok := ev.(engine.Created); ok {
			fmt.Printf("created: %s\n", created.Record.Doc.Frontmatter.Title)
		}
	}

	summary, events, _, err = eng.Run(ctx, state)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("second pass: quiet=%v events=%d\n", summary.Quiet(), len(events))

	// Output:
	// first pass: ingested=1 events=1
	// created: Water the plants
	// second pass: quiet=true events=0
}
