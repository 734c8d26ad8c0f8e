// Package board holds the shared state of one collaboratively edited board as
// seen by a single client.
package board

// Field names one of the free-text fields of a board.
type Field string

const (
	FieldCode  Field = "code"
	FieldNotes Field = "notes"
	FieldLink  Field = "link"
)

// Task is one entry of the board's task list.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Assignee  string `json:"assignee"`
}

// Member is one participant in the team roster.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ChatEntry is a transient chat line. It never appears in a Snapshot.
type ChatEntry struct {
	User    Member `json:"user"`
	Message string `json:"message"`
}

// Snapshot is the reconciled "full state" of a board, as carried by
// INITIAL_STATE.
type Snapshot struct {
	ID           string   `json:"id"`
	ContentCode  string   `json:"contentCode"`
	ContentNotes string   `json:"contentNotes"`
	ContentTasks []Task   `json:"contentTasks"`
	HuddleLink   string   `json:"huddleLink"`
	Team         []Member `json:"team"`
}

// Palette is the fixed set of member colors.
var Palette = []string{
	"#e57373", "#f06292", "#ba68c8", "#7986cb",
	"#4fc3f7", "#4db6ac", "#81c784", "#ffb74d",
}

// DefaultCode seeds the code buffer of a freshly created board.
const DefaultCode = "// Welcome to your Huddle!\n// Start coding here."

// Clone returns a deep copy whose slices do not alias s.
func (s Snapshot) Clone() Snapshot {
	s.ContentTasks = CloneTasks(s.ContentTasks)
	s.Team = CloneTeam(s.Team)
	return s
}

func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func CloneTeam(team []Member) []Member {
	out := make([]Member, len(team))
	copy(out, team)
	return out
}

// Progress reports how many tasks are completed out of the total.
func Progress(tasks []Task) (done, total int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	return done, len(tasks)
}

// HasMember reports whether a member with id is on the team.
func HasMember(team []Member, id string) bool {
	for _, m := range team {
		if m.ID == id {
			return true
		}
	}
	return false
}

// MemberNamed returns the first member whose name is name.
func MemberNamed(team []Member, name string) (Member, bool) {
	for _, m := range team {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}
