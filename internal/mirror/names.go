package mirror

import (
	"strings"
)

const (
	// StatusTableName is the single-row status table kept in the primary database
	StatusTableName = "mirror_status"

	// reservedPrefix marks tables owned by the mirror engine itself
	reservedPrefix = "mirror_"
	// stagingSuffix marks fully populated tables not yet visible under their real name
	stagingSuffix = "__tmp_restore"
	// retiredMarker marks previous live tables renamed aside by a swap
	retiredMarker = "__old_"
)

// StagedName returns the temporary name a table is staged under
func StagedName(table string) string {
	return table + stagingSuffix
}

// RetiredName returns the name a live table is renamed to when a staged table
// takes its place
func RetiredName(table string, runID string) string {
	return table + retiredMarker + runID
}

// IsReservedName reports whether a table belongs to the mirror engine rather
// than the application: the status row, staged tables, and retired tables.
// Reserved tables are excluded from every generic mirror pass, which is what
// lets the status row survive the restore it reports on.
func IsReservedName(table string) bool {
	if strings.HasPrefix(table, reservedPrefix) {
		return true
	}
	if strings.HasSuffix(table, stagingSuffix) {
		return true
	}
	if strings.Contains(table, retiredMarker) {
		return true
	}
	return false
}

// FilterApplicationTables drops reserved names from a table list
func FilterApplicationTables(tables []string) []string {
	filtered := make([]string, 0, len(tables))
	for _, table := range tables {
		if !IsReservedName(table) {
			filtered = append(filtered, table)
		}
	}
	return filtered
}
