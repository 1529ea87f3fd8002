package repository

import (
	"fmt"
	"strconv"
)

// Cache keys are namespaced by entry kind. "task:" and "tasks:" never
// overlap, and the listing kinds differ in their second segment, so no two
// (kind, parameters) tuples share a key.

// TaskKey is the cache key of a single task.
func TaskKey(id int64) string {
	return "task:" + strconv.FormatInt(id, 10)
}

// AllTasksKey is the cache key of one page of the global listing.
func AllTasksKey(skip, limit int) string {
	return fmt.Sprintf("tasks:all:%d:%d", skip, limit)
}

// UserTasksKey is the cache key of one page of an owner's listing.
func UserTasksKey(ownerID int64, skip, limit int) string {
	return fmt.Sprintf("tasks:user:%d:%d:%d", ownerID, skip, limit)
}

// UserTasksPattern matches every cached page of an owner's listing.
func UserTasksPattern(ownerID int64) string {
	return fmt.Sprintf("tasks:user:%d:*", ownerID)
}

// AllTasksPattern matches every cached page of the global listing.
func AllTasksPattern() string {
	return "tasks:all:*"
}
