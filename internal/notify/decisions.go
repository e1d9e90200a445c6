package notify

import (
	"fmt"

	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/richtext"
)

const entityTask = "task"

// TaskRef carries what a notification needs to know about its task.
type TaskRef struct {
	OrganizationID uint64
	TaskID         uint64
	ProjectKey     string
	Number         int64
	Title          string
	ReporterID     uint64
}

// Key is the human-readable task identifier, e.g. ENG-42.
func (t TaskRef) Key() string {
	return fmt.Sprintf("%s-%d", t.ProjectKey, t.Number)
}

// AssignmentNotice notifies a new assignee. Clearing the assignee, keeping
// the same one, or assigning oneself produces nothing.
func AssignmentNotice(actorID uint64, task TaskRef, oldAssignee, newAssignee *uint64) (Message, bool) {
	if newAssignee == nil || *newAssignee == actorID {
		return Message{}, false
	}
	if oldAssignee != nil && *oldAssignee == *newAssignee {
		return Message{}, false
	}
	return newMessage(task.OrganizationID, *newAssignee, models.NotificationTaskAssigned,
		"You were assigned "+task.Key(), task.Title, entityTask, task.TaskID), true
}

// CompletionNotice notifies the reporter when the task enters a done-category
// status, unless the reporter made the change.
func CompletionNotice(actorID uint64, task TaskRef, oldStatusID uint64, newStatus *models.TaskStatus) (Message, bool) {
	if newStatus == nil || newStatus.ID == oldStatusID {
		return Message{}, false
	}
	if newStatus.Category != models.StatusCategoryDone || task.ReporterID == actorID {
		return Message{}, false
	}
	return newMessage(task.OrganizationID, task.ReporterID, models.NotificationTaskDone,
		task.Key()+" moved to Done", task.Title, entityTask, task.TaskID), true
}

// MentionNotices notifies every distinct user mentioned in a comment body
// other than its author. isMember filters out ids outside the organization.
func MentionNotices(author *models.User, task TaskRef, body []byte, isMember func(userID uint64) bool) ([]Message, error) {
	ids, err := richtext.Mentions(body, author.ID)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(ids))
	for _, id := range ids {
		if isMember != nil && !isMember(id) {
			continue
		}
		msgs = append(msgs, newMessage(task.OrganizationID, id, models.NotificationMention,
			fmt.Sprintf("%s mentioned you in %s", author.DisplayName, task.Key()), task.Title, entityTask, task.TaskID))
	}
	return msgs, nil
}
