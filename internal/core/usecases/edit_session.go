package usecases

// EditMode is the state of an edit session.
type EditMode int

const (
	Viewing EditMode = iota
	Editing
)

func (m EditMode) String() string {
	switch m {
	case Editing:
		return "EDITING"
	default:
		return "VIEWING"
	}
}

// EditSession tracks whether polygons are mutable and which one is selected.
// An empty selection means none.
type EditSession struct {
	mode     EditMode
	selected PolygonID
}

// Mode returns the current state.
func (s *EditSession) Mode() EditMode { return s.mode }

// Editing reports whether the session is in EDITING.
func (s *EditSession) Editing() bool { return s.mode == Editing }

// Toggle flips between VIEWING and EDITING and returns the new state.
func (s *EditSession) Toggle() EditMode {
	if s.mode == Editing {
		s.mode = Viewing
	} else {
		s.mode = Editing
	}
	return s.mode
}

// Select marks id as the selected polygon.
func (s *EditSession) Select(id PolygonID) { s.selected = id }

// Selected returns the selected polygon, if any.
func (s *EditSession) Selected() (PolygonID, bool) {
	return s.selected, s.selected != ""
}

// ClearSelection resets the selection to none.
func (s *EditSession) ClearSelection() { s.selected = "" }
