package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"vellum/internal/buildpipeline"
	"vellum/internal/ui"
)

// runWithUI runs work in the background while a progress view consumes its
// events. The view quits once work returns.
func runWithUI[T any](title string, files []string, work func(sink buildpipeline.ProgressSink) T) (T, error) {
	events := make(chan buildpipeline.Event, 256)
	outcome := make(chan T, 1)

	go func() {
		res := work(buildpipeline.ChannelSink{Ch: events})
		outcome <- res
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// вью упало: дочитываем события, чтобы работа не встала на канале
		go func() {
			for range events {
			}
		}()
	}
	return <-outcome, uiErr
}

// runProgress picks between the progress view and a plain run.
func runProgress[T any](mode uiMode, title string, files []string, work func(sink buildpipeline.ProgressSink) T) (T, error) {
	if shouldUseTUI(mode) && len(files) > 0 {
		return runWithUI(title, files, work)
	}
	return work(nil), nil
}
