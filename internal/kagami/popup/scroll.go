package popup

// ScrollState tracks the selection cursor and scroll window of a row list.
// A selected index of -1 means no selection.
type ScrollState struct {
	SelectedIdx int
	ScrollTop   int
}

// NewScrollState returns a state with no selection.
func NewScrollState() ScrollState {
	return ScrollState{SelectedIdx: -1}
}

// HasSelection reports whether a row is selected.
func (s *ScrollState) HasSelection() bool {
	return s.SelectedIdx >= 0
}

// ClampSelection keeps the selection inside [0, len).  An empty list clears
// the selection.
func (s *ScrollState) ClampSelection(length int) {
	if length == 0 {
		s.SelectedIdx = -1
		return
	}
	if s.SelectedIdx >= length {
		s.SelectedIdx = length - 1
	}
}

// MoveUpWrap moves the selection up, wrapping to the bottom.
func (s *ScrollState) MoveUpWrap(length int) {
	if length == 0 {
		return
	}
	switch {
	case s.SelectedIdx <= 0:
		s.SelectedIdx = length - 1
	default:
		s.SelectedIdx--
	}
}

// MoveDownWrap moves the selection down, wrapping to the top.
func (s *ScrollState) MoveDownWrap(length int) {
	if length == 0 {
		return
	}
	s.SelectedIdx = (s.SelectedIdx + 1) % length
	if s.SelectedIdx < 0 {
		s.SelectedIdx = 0
	}
}

// EnsureVisible scrolls the window so the selection is inside the visible
// row span.
func (s *ScrollState) EnsureVisible(length, visible int) {
	if visible <= 0 || length == 0 || s.SelectedIdx < 0 {
		s.ScrollTop = 0
		return
	}
	if s.SelectedIdx < s.ScrollTop {
		s.ScrollTop = s.SelectedIdx
	}
	if s.SelectedIdx >= s.ScrollTop+visible {
		s.ScrollTop = s.SelectedIdx - visible + 1
	}
	if maxTop := length - visible; s.ScrollTop > maxTop {
		if maxTop < 0 {
			maxTop = 0
		}
		s.ScrollTop = maxTop
	}
}
