package scheduling

import (
	"slices"

	"github.com/desertthunder/olx/internal/models"
)

// MergeMembers appends a row for each member whose key is not already in rows.
// newRow builds the row for a member name. Duplicates within members are also skipped.
func MergeMembers(rows []models.UserRow, members []string, newRow func(string) models.UserRow) ([]models.UserRow, int) {
	seen := make(map[string]bool, len(rows)+len(members))
	for _, r := range rows {
		seen[r.Key()] = true
	}

	out := slices.Clone(rows)
	added := 0
	for _, m := range members {
		row := newRow(m)
		if m == "" || seen[row.Key()] {
			continue
		}
		seen[row.Key()] = true
		out = append(out, row)
		added++
	}
	return out, added
}

// PartitionParticipants splits participants into CRM user rows for the multi-select
// and the remaining reference types for the participant table.
func PartitionParticipants(participants []models.EventParticipant) ([]models.UserRow, []models.ParticipantRow) {
	users := []models.UserRow{}
	others := []models.ParticipantRow{}
	for _, p := range participants {
		if p.IsUser() {
			users = append(users, models.UserRow{User: p.ReferenceDocname})
			continue
		}
		others = append(others, models.ParticipantRowFrom(p))
	}
	return users, others
}
