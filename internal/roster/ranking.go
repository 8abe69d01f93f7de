package roster

import (
	"cmp"
	"slices"
	"strings"
)

// Row is one ranked line of the roster. Ranks start at 1 and never repeat.
type Row struct {
	Rank int
	Participant
}

// Rank orders participants by score descending, then case-insensitive name,
// then join order and id, and numbers them from 1.
func Rank(participants []Participant) []Row {
	sorted := slices.Clone(participants)
	slices.SortFunc(sorted, compareParticipants)
	rows := make([]Row, len(sorted))
	for i, p := range sorted {
		rows[i] = Row{Rank: i + 1, Participant: p}
	}
	return rows
}

func compareParticipants(a, b Participant) int {
	if c := cmp.Compare(b.RankScore(), a.RankScore()); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.joined, b.joined); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Summary is the final ranked scoreboard emitted when a session ends.
type Summary struct {
	Rows []Row
}

// Winner returns the top row.
func (s Summary) Winner() (Row, bool) {
	if len(s.Rows) == 0 {
		return Row{}, false
	}
	return s.Rows[0], true
}
