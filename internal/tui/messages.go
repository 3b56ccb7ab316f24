package tui

import (
	"github.com/ganot/inscritos/internal/domain/mutation"
	"github.com/ganot/inscritos/internal/export"
)

// loadedMsg is sent when a page finished loading.
type loadedMsg struct {
	Page string
	Err  error
}

// settleMsg fires once typing pauses on a deferred filter.
type settleMsg struct {
	Page string
	Gen  uint64
}

// validatedMsg carries the outcome of a bulk validation.
type validatedMsg struct {
	Page   string
	Report mutation.Report
	Err    error
}

// exportedMsg carries the outcome of an export.
type exportedMsg struct {
	Result export.Result
	Err    error
}

// noticeTickMsg re-renders so expired notices disappear.
type noticeTickMsg struct{}
