package game

// Timeline is the ordered, read-only list of notes for one song.
type Timeline struct {
	entries []NoteEntry
}

// NewTimeline copies entries, which must already be ordered by Time.
func NewTimeline(entries []NoteEntry) *Timeline {
	e := make([]NoteEntry, len(entries))
	copy(e, entries)
	return &Timeline{entries: e}
}

func (t *Timeline) Len() int {
	if nil == t {
		return 0
	}
	return len(t.entries)
}

func (t *Timeline) At(i int) NoteEntry {
	return t.entries[i]
}

// Entries returns a copy of the timeline.
func (t *Timeline) Entries() []NoteEntry {
	e := make([]NoteEntry, t.Len())
	if t.Len() > 0 {
		copy(e, t.entries)
	}
	return e
}

// Last returns the final entry, false for an empty timeline.
func (t *Timeline) Last() (NoteEntry, bool) {
	if t.Len() == 0 {
		return NoteEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}
