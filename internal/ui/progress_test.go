package ui

import (
	"errors"
	"strings"
	"testing"

	"vellum/internal/buildpipeline"
)

func TestProgressModelTracksDocuments(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewProgressModel("vellum build", []string{"a", "b"}, events).(*progressModel)

	apply := func(file string, stage buildpipeline.Stage, status buildpipeline.Status, err error) {
		m.applyEvent(buildpipeline.Event{File: file, Stage: stage, Status: status, Err: err})
	}

	apply("a", buildpipeline.StageFonts, buildpipeline.StatusWorking, nil)
	apply("a", buildpipeline.StageFonts, buildpipeline.StatusDone, nil)
	apply("a", buildpipeline.StageCompile, buildpipeline.StatusWorking, nil)
	if got := m.items[0].status; got != "compiling" {
		t.Fatalf("a status = %q", got)
	}
	if p := m.percent(); p != 0.2 {
		t.Errorf("percent = %v, want 0.2", p)
	}

	apply("a", buildpipeline.StageExport, buildpipeline.StatusDone, nil)
	apply("b", buildpipeline.StageCompile, buildpipeline.StatusError, errors.New("document compilation failed"))
	if m.items[0].status != "done" || m.items[1].status != "error" {
		t.Fatalf("statuses = %q %q", m.items[0].status, m.items[1].status)
	}
	if p := m.percent(); p != 1 {
		t.Errorf("percent = %v, want 1", p)
	}

	apply("unknown", buildpipeline.StageCompile, buildpipeline.StatusWorking, nil)

	view := m.View()
	for _, want := range []string{"vellum build", "a", "document compilation failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelWriteIsFinal(t *testing.T) {
	m := NewProgressModel("t", []string{"a"}, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{File: "a", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusWorking})
	if m.items[0].status != "writing" {
		t.Fatalf("status = %q", m.items[0].status)
	}
	m.applyEvent(buildpipeline.Event{File: "a", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone})
	if m.items[0].status != "done" || m.percent() != 1 {
		t.Errorf("status = %q, percent = %v", m.items[0].status, m.percent())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a-long-document-name.vel", 10, "a-long-..."},
		{"文書文書文書", 8, "文書..."},
		{"abc", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
