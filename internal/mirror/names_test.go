package mirror

import (
	"reflect"
	"testing"
)

func TestStagedName(t *testing.T) {
	if got := StagedName("users"); got != "users__tmp_restore" {
		t.Errorf("StagedName(users) = %s", got)
	}
}

func TestRetiredName(t *testing.T) {
	if got := RetiredName("users", "a1b2c3d4"); got != "users__old_a1b2c3d4" {
		t.Errorf("RetiredName(users, a1b2c3d4) = %s", got)
	}
}

func TestIsReservedName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"users", false},
		{"images", false},
		{"mirror_status", true},
		{"users__tmp_restore", true},
		{"users__old_a1b2c3d4", true},
		{"old_users", false},
		{"tmp_restore", false},
	}

	for _, tt := range tests {
		if got := IsReservedName(tt.name); got != tt.want {
			t.Errorf("IsReservedName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilterApplicationTables(t *testing.T) {
	tables := []string{"images", "mirror_status", "users", "users__old_ff00aa11", "users__tmp_restore"}
	got := FilterApplicationTables(tables)
	want := []string{"images", "users"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterApplicationTables = %v, want %v", got, want)
	}
}
