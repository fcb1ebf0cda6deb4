package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func benchVault(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("---\ntitle: Task %d\nstatus: todo\n---\nbody %d\n", i, i)
		name := fmt.Sprintf("20260101-%04d-task-%d.md", i%2400, i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return dir
}

func BenchmarkRun_InitialIngestion(b *testing.B) {
	dir := benchVault(b, 500)
	e := New(dir, nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := e.Run(ctx, NewState()); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRun_Unchanged measures the steady state: every file skipped on
// the mtime check, so cost tracks corpus enumeration, not parsing.
func BenchmarkRun_Unchanged(b *testing.B) {
	dir := benchVault(b, 500)
	e := New(dir, nil)
	ctx := context.Background()
	_, _, state, err := e.Run(ctx, NewState())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := e.Run(ctx, state); err != nil {
			b.Fatal(err)
		}
	}
}
