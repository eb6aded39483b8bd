package tui

import (
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/monitor"
)

// pageLoadedMsg carries the result of one history fetch. A superseded
// fetch never produces this message; the engine swallows it.
type pageLoadedMsg struct {
	page *model.TransactionPage
	err  error
}

// trainingUpdateMsg relays one monitor snapshot into the update loop.
type trainingUpdateMsg struct {
	snapshot monitor.Snapshot
}

// trainingStartedMsg reports the outcome of a start-training request.
type trainingStartedMsg struct {
	err error
}

// View selects the active dashboard pane.
type View int

const (
	// ViewHistory shows the filterable transaction table.
	ViewHistory View = iota
	// ViewTraining shows the training job watch pane.
	ViewTraining
)
