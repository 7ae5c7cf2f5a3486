package scheduling

import (
	"testing"

	"github.com/desertthunder/olx/internal/models"
)

func TestMergeMembers(t *testing.T) {
	microsoft := func(name string) models.UserRow { return models.UserRow{MicrosoftUser: name} }

	t.Run("Skips Existing Rows", func(t *testing.T) {
		rows, added := MergeMembers([]models.UserRow{{MicrosoftUser: "a"}}, []string{"a", "b"}, microsoft)
		if added != 1 || len(rows) != 2 || rows[0].MicrosoftUser != "a" || rows[1].MicrosoftUser != "b" {
			t.Errorf("expected [{a} {b}], got %+v (added %d)", rows, added)
		}
	})

	t.Run("Skips Repeated And Empty Members", func(t *testing.T) {
		rows, added := MergeMembers(nil, []string{"a", "", "a", "c"}, microsoft)
		if added != 2 || len(rows) != 2 {
			t.Errorf("expected 2 rows, got %+v", rows)
		}
	})

	t.Run("Does Not Modify Input", func(t *testing.T) {
		in := make([]models.UserRow, 1, 4)
		in[0] = models.UserRow{MicrosoftUser: "a"}
		MergeMembers(in, []string{"b"}, microsoft)
		if len(in) != 1 || in[:2][1].MicrosoftUser != "" {
			t.Error("input backing array was written")
		}
	})
}

func TestPartitionParticipants(t *testing.T) {
	t.Run("Splits Users From Other References", func(t *testing.T) {
		users, others := PartitionParticipants([]models.EventParticipant{
			{ReferenceDoctype: "User", ReferenceDocname: "u1"},
			{ReferenceDoctype: "Contact", ReferenceDocname: "c1", Email: "c1@example.com"},
			{ReferenceDoctype: "User", ReferenceDocname: "u2"},
		})

		if len(users) != 2 || users[0].User != "u1" || users[1].User != "u2" {
			t.Errorf("unexpected users %+v", users)
		}
		if len(others) != 1 || others[0].ReferenceDocname != "c1" || others[0].Email != "c1@example.com" {
			t.Errorf("unexpected participants %+v", others)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		users, others := PartitionParticipants(nil)
		if users == nil || others == nil || len(users)+len(others) != 0 {
			t.Errorf("expected empty non-nil lists, got %v %v", users, others)
		}
	})
}
