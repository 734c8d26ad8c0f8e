package board

// ChatLimit caps the chat transcript kept per session; older lines are dropped.
const ChatLimit = 500

// Store is the client's in-memory copy of a board. It has a single owner (the
// session event loop) and performs no locking.
type Store struct {
	boardID     string
	initialized bool

	code  string
	notes string
	link  string
	tasks []Task
	team  []Member
	chat  []ChatEntry

	done, total int
}

// View is an immutable copy of the store handed to renderers.
type View struct {
	BoardID     string
	Initialized bool
	Code        string
	Notes       string
	Link        string
	Tasks       []Task
	Team        []Member
	Chat        []ChatEntry
	Done        int
	Total       int
}

func NewStore(boardID string) *Store {
	return &Store{
		boardID: boardID,
		tasks:   []Task{},
		team:    []Member{},
	}
}

func (s *Store) BoardID() string   { return s.boardID }
func (s *Store) Initialized() bool { return s.initialized }

func (s *Store) Text(f Field) string {
	switch f {
	case FieldCode:
		return s.code
	case FieldNotes:
		return s.notes
	case FieldLink:
		return s.link
	}
	return ""
}

// SetText replaces a text field and reports whether the value changed.
func (s *Store) SetText(f Field, v string) bool {
	var dst *string
	switch f {
	case FieldCode:
		dst = &s.code
	case FieldNotes:
		dst = &s.notes
	case FieldLink:
		dst = &s.link
	default:
		return false
	}
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

// Tasks returns a copy of the task list.
func (s *Store) Tasks() []Task { return CloneTasks(s.tasks) }

// SetTasks replaces the whole task list and recomputes progress.
func (s *Store) SetTasks(tasks []Task) {
	if tasks == nil {
		tasks = []Task{}
	}
	s.tasks = CloneTasks(tasks)
	s.done, s.total = Progress(s.tasks)
}

// Team returns a copy of the roster.
func (s *Store) Team() []Member { return CloneTeam(s.team) }

// SetTeam replaces the whole roster.
func (s *Store) SetTeam(team []Member) {
	if team == nil {
		team = []Member{}
	}
	s.team = CloneTeam(team)
}

func (s *Store) AppendChat(e ChatEntry) {
	s.chat = append(s.chat, e)
	if over := len(s.chat) - ChatLimit; over > 0 {
		s.chat = append(s.chat[:0:0], s.chat[over:]...)
	}
}

func (s *Store) Progress() (done, total int) { return s.done, s.total }

// Load replaces every reconciled field from snap. Chat is left alone.
func (s *Store) Load(snap Snapshot) {
	if snap.ID != "" {
		s.boardID = snap.ID
	}
	s.code = snap.ContentCode
	s.notes = snap.ContentNotes
	s.link = snap.HuddleLink
	s.SetTasks(snap.ContentTasks)
	s.SetTeam(snap.Team)
	s.initialized = true
}

// Snapshot returns the reconciled state in wire form.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ID:           s.boardID,
		ContentCode:  s.code,
		ContentNotes: s.notes,
		ContentTasks: CloneTasks(s.tasks),
		HuddleLink:   s.link,
		Team:         CloneTeam(s.team),
	}
}

func (s *Store) View() View {
	chat := make([]ChatEntry, len(s.chat))
	copy(chat, s.chat)
	return View{
		BoardID:     s.boardID,
		Initialized: s.initialized,
		Code:        s.code,
		Notes:       s.notes,
		Link:        s.link,
		Tasks:       CloneTasks(s.tasks),
		Team:        CloneTeam(s.team),
		Chat:        chat,
		Done:        s.done,
		Total:       s.total,
	}
}
