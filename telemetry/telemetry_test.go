package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContextReturnsNoOpWhenMissing(t *testing.T) {
	collector := FromContext(context.Background())
	if collector == nil {
		t.Fatal("FromContext should never return nil")
	}
	if _, ok := collector.(noOpCollector); !ok {
		t.Errorf("FromContext should return noOpCollector when none present, got: %T", collector)
	}
}

func TestWithCollector(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	retrieved, ok := FromContext(ctx).(*TimingCollector)
	if !ok || retrieved != collector {
		t.Error("FromContext should return the same collector that was added")
	}
}

func TestNoOpCollectorProducesNoOutput(t *testing.T) {
	collector := noOpCollector{}

	timer := collector.Start("run")
	child := timer.Child("child")
	child.End()
	timer.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("no-op collector should produce no output, got: %s", buf.String())
	}
}

func TestTimingCollectorTree(t *testing.T) {
	collector := NewTimingCollector()

	root := collector.Start("Run report")
	load := root.Child("Load journal")
	parse := load.Child("Parse main.ledger")
	parse.End()
	load.End()
	process := root.Child("Process postings")
	process.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Run report: ") {
		t.Errorf("root line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "├─ Load journal: ") {
		t.Errorf("first child line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "│  └─ Parse main.ledger: ") {
		t.Errorf("nested line = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "└─ Process postings: ") {
		t.Errorf("last child line = %q", lines[3])
	}
}

func TestTimingCollectorEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	NewTimingCollector().Report(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("empty collector should produce no output, got: %s", buf.String())
	}
}

func TestSiblingAfterEndNestsUnderRoot(t *testing.T) {
	collector := NewTimingCollector()

	root := collector.Start("Run report")
	first := collector.Start("First")
	first.End()
	second := collector.Start("Second")
	second.End()
	root.End()

	var buf bytes.Buffer
	collector.Report(&buf, nil)
	out := buf.String()

	if !strings.Contains(out, "├─ First") || !strings.Contains(out, "└─ Second") {
		t.Errorf("siblings should be direct children of the root:\n%s", out)
	}
}
