// Package wizard implements the step-driven worktree-creation flow: it
// collects name/branch/path/shared-dirs, validates the inputs, drives the
// git side-effect pipeline, and emits history cells plus the switch events
// downstream consumers react to.
package wizard

// CellKind classifies a history cell.
type CellKind string

const (
	CellInfo    CellKind = "info"
	CellError   CellKind = "error"
	CellCommand CellKind = "command"
)

// HistoryCell is a block of lines rendered into the transcript.
type HistoryCell struct {
	Kind  CellKind
	Lines []string
}

// Event is one output of the wizard.
type Event interface{ isEvent() }

// InsertHistoryCell renders a status/error/summary cell.
type InsertHistoryCell struct {
	Cell HistoryCell
}

// WorktreeSwitched tells the session to adopt the new cwd.
type WorktreeSwitched struct {
	Path string
}

// OverrideTurnContext swaps the turn context's cwd downstream.
type OverrideTurnContext struct {
	Cwd string
}

// ListSkills reloads skills for the new worktree.
type ListSkills struct {
	Cwds        []string
	ForceReload bool
}

// UpdateSharedDirs replaces the in-memory shared-dir list.
type UpdateSharedDirs struct {
	SharedDirs []string
}

// PersistSharedDirs writes the shared-dir list to the session store.
type PersistSharedDirs struct {
	SharedDirs []string
}

func (InsertHistoryCell) isEvent()    {}
func (WorktreeSwitched) isEvent()     {}
func (OverrideTurnContext) isEvent()  {}
func (ListSkills) isEvent()           {}
func (UpdateSharedDirs) isEvent()     {}
func (PersistSharedDirs) isEvent()    {}

// Sender delivers wizard events to the app event loop.  Implementations
// must be safe for use from the apply goroutine.
type Sender interface {
	Send(Event)
}
