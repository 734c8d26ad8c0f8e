package collection

import (
	"huddle/internal/board"
)

// JoinTeam appends self unless a member with the same id is already present.
// The second result reports whether the roster changed.
func JoinTeam(team []board.Member, self board.Member) ([]board.Member, bool) {
	if self.ID == "" || board.HasMember(team, self.ID) {
		return board.CloneTeam(team), false
	}
	out := make([]board.Member, 0, len(team)+1)
	out = append(out, team...)
	out = append(out, self)
	return out, true
}

// RenameMember replaces the name of the member with id, keeping its position.
// Task assignments naming the old name are left to the caller.
func RenameMember(team []board.Member, id, name string) ([]board.Member, bool) {
	out := board.CloneTeam(team)
	for i := range out {
		if out[i].ID == id {
			if out[i].Name == name {
				return out, false
			}
			out[i].Name = name
			return out, true
		}
	}
	return out, false
}

// Dedupe keeps the first member for each id. Two clients that race on
// registration can briefly produce duplicates.
func Dedupe(team []board.Member) []board.Member {
	seen := make(map[string]struct{}, len(team))
	out := make([]board.Member, 0, len(team))
	for _, m := range team {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
