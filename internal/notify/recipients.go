package notify

import (
	"remindd/internal/auth"
	"remindd/internal/task"
)

// Recipients returns the users entitled to a reminder for a task: the
// creator and the assignee, deduplicated, creator first. Pure; an empty
// slice is valid for a task with neither reference resolved.
func Recipients(t *task.Task) []auth.User {
	out := make([]auth.User, 0, 2)
	if t.CreatedBy != nil {
		out = append(out, *t.CreatedBy)
	}
	if t.AssignedTo != nil {
		if t.CreatedBy == nil || t.AssignedTo.ID != t.CreatedBy.ID {
			out = append(out, *t.AssignedTo)
		}
	}
	return out
}
