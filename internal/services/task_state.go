package services

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/datatypes"
)

const (
	ErrCodeInvalidStatus   = "INVALID_STATUS"
	ErrCodeInvalidAssignee = "INVALID_ASSIGNEE"
	ErrCodeInvalidPriority = "INVALID_PRIORITY"
	ErrCodeInvalidType     = "INVALID_TYPE"
	ErrCodeTitleRequired   = "TITLE_REQUIRED"
	ErrCodeInvalidParent   = "INVALID_PARENT"
	ErrCodeInvalidSprint   = "INVALID_SPRINT"
	ErrCodeNullNotAllowed  = "NULL_NOT_ALLOWED"
	ErrCodeInvalidBody     = "INVALID_DOCUMENT"
	ErrCodeLabelNotFound   = "LABEL_NOT_FOUND"
)

var (
	ErrInvalidStatus   = apierrors.New(apierrors.KindValidation, ErrCodeInvalidStatus, "status does not belong to the task's project")
	ErrInvalidAssignee = apierrors.New(apierrors.KindValidation, ErrCodeInvalidAssignee, "assignee is not a member of the organization")
	ErrInvalidPriority = apierrors.New(apierrors.KindValidation, ErrCodeInvalidPriority, "invalid priority")
	ErrInvalidType     = apierrors.New(apierrors.KindValidation, ErrCodeInvalidType, "invalid task type")
	ErrTitleRequired   = apierrors.New(apierrors.KindValidation, ErrCodeTitleRequired, "title is required")
	ErrInvalidParent   = apierrors.New(apierrors.KindValidation, ErrCodeInvalidParent, "parent task must be another task in the same project")
	ErrInvalidSprint   = apierrors.New(apierrors.KindValidation, ErrCodeInvalidSprint, "sprint does not belong to the task's project")
	ErrNullNotAllowed  = apierrors.New(apierrors.KindValidation, ErrCodeNullNotAllowed, "field cannot be null")
	ErrInvalidDocument = apierrors.New(apierrors.KindValidation, ErrCodeInvalidBody, "document must be a JSON object")
	ErrLabelNotFound   = apierrors.New(apierrors.KindValidation, ErrCodeLabelNotFound, "label does not belong to the task's project")
)

// Optional is a patch field. Set is true when the key was present in the
// request; Null is true when its value was an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a set, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a set Optional holding null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// TaskPatch is a partial update. Absent fields are left untouched.
type TaskPatch struct {
	Title        Optional[string]              `json:"title"`
	Description  Optional[json.RawMessage]     `json:"description_json"`
	StatusID     Optional[uint64]              `json:"status_id"`
	AssigneeID   Optional[uint64]              `json:"assignee_id"`
	Priority     Optional[models.TaskPriority] `json:"priority"`
	Type         Optional[models.TaskType]     `json:"type"`
	SprintID     Optional[uint64]              `json:"sprint_id"`
	ParentTaskID Optional[uint64]              `json:"parent_task_id"`
	DueDate      Optional[time.Time]           `json:"due_date"`
	Position     Optional[int64]               `json:"position"`
	// LabelIDs replaces the whole label set.
	LabelIDs Optional[[]uint64] `json:"label_ids"`
}

// FieldChange is one changed field. Old and New are JSON-encodable.
type FieldChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Diff lists changed fields in a fixed order.
type Diff []FieldChange

// Has reports whether field changed.
func (d Diff) Has(field string) bool {
	for _, c := range d {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Transition is the outcome of applying a patch.
type Transition struct {
	Diff          Diff
	OldStatusID   uint64
	OldAssigneeID *uint64
	// NewStatus is loaded only when status_id changed.
	NewStatus *models.TaskStatus
	// LabelIDs is the new label set when label_ids changed.
	LabelIDs []uint64
}

// PatchValidator answers the lookups a patch needs. Implementations must
// read through the same transaction that will write the task.
type PatchValidator interface {
	// StatusInProject returns the status or ErrInvalidStatus.
	StatusInProject(ctx context.Context, projectID, statusID uint64) (*models.TaskStatus, error)
	IsMember(ctx context.Context, organizationID, userID uint64) (bool, error)
	SprintInProject(ctx context.Context, projectID, sprintID uint64) (bool, error)
	TaskInProject(ctx context.Context, projectID, taskID uint64) (bool, error)
	// LabelsInProject reports whether every id names a label of the project.
	LabelsInProject(ctx context.Context, projectID uint64, labelIDs []uint64) (bool, error)
}

// InitialPosition places a new task after the last one in its status column.
func InitialPosition(maxPosition int64) int64 {
	return maxPosition + constants.PositionGap
}

// ApplyPatch validates every present field and only then mutates task.
// On error task is unchanged.
func ApplyPatch(ctx context.Context, task *models.Task, patch TaskPatch, v PatchValidator) (*Transition, error) {
	var newStatus *models.TaskStatus

	if patch.Title.Set {
		if patch.Title.Null {
			return nil, ErrNullNotAllowed
		}
		if strings.TrimSpace(patch.Title.Value) == "" {
			return nil, ErrTitleRequired
		}
	}
	if patch.Description.Set && !patch.Description.Null {
		if !isJSONObject(patch.Description.Value) {
			return nil, ErrInvalidDocument
		}
	}
	if patch.StatusID.Set {
		if patch.StatusID.Null {
			return nil, ErrNullNotAllowed
		}
		status, err := v.StatusInProject(ctx, task.ProjectID, patch.StatusID.Value)
		if err != nil {
			return nil, err
		}
		newStatus = status
	}
	if patch.AssigneeID.Set && !patch.AssigneeID.Null {
		ok, err := v.IsMember(ctx, task.OrganizationID, patch.AssigneeID.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidAssignee
		}
	}
	if patch.Priority.Set {
		if patch.Priority.Null || !patch.Priority.Value.Valid() {
			return nil, ErrInvalidPriority
		}
	}
	if patch.Type.Set {
		if patch.Type.Null || !patch.Type.Value.Valid() {
			return nil, ErrInvalidType
		}
	}
	if patch.SprintID.Set && !patch.SprintID.Null {
		ok, err := v.SprintInProject(ctx, task.ProjectID, patch.SprintID.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidSprint
		}
	}
	if patch.ParentTaskID.Set && !patch.ParentTaskID.Null {
		if patch.ParentTaskID.Value == task.ID {
			return nil, ErrInvalidParent
		}
		ok, err := v.TaskInProject(ctx, task.ProjectID, patch.ParentTaskID.Value)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidParent
		}
	}
	if patch.Position.Set && patch.Position.Null {
		return nil, ErrNullNotAllowed
	}
	var labelIDs []uint64
	if patch.LabelIDs.Set {
		if patch.LabelIDs.Null {
			return nil, ErrNullNotAllowed
		}
		labelIDs = normalizeIDs(patch.LabelIDs.Value)
		if len(labelIDs) > 0 {
			ok, err := v.LabelsInProject(ctx, task.ProjectID, labelIDs)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrLabelNotFound
			}
		}
	}

	t := &Transition{OldStatusID: task.StatusID, OldAssigneeID: copyID(task.AssigneeID)}

	if patch.Title.Set {
		title := strings.TrimSpace(patch.Title.Value)
		if title != task.Title {
			t.Diff = append(t.Diff, FieldChange{"title", task.Title, title})
			task.Title = title
		}
	}
	if patch.Description.Set {
		var next datatypes.JSON
		if !patch.Description.Null {
			next = datatypes.JSON(patch.Description.Value)
		}
		if !jsonEqual(task.Description, next) {
			t.Diff = append(t.Diff, FieldChange{"description_json", rawOrNil(task.Description), rawOrNil(next)})
			task.Description = next
		}
	}
	if patch.StatusID.Set && patch.StatusID.Value != task.StatusID {
		t.Diff = append(t.Diff, FieldChange{"status_id", task.StatusID, patch.StatusID.Value})
		task.StatusID = patch.StatusID.Value
		t.NewStatus = newStatus
	}
	if patch.AssigneeID.Set {
		next := optionalID(patch.AssigneeID)
		if !sameID(task.AssigneeID, next) {
			t.Diff = append(t.Diff, FieldChange{"assignee_id", idOrNil(task.AssigneeID), idOrNil(next)})
			task.AssigneeID = next
		}
	}
	if patch.Priority.Set && patch.Priority.Value != task.Priority {
		t.Diff = append(t.Diff, FieldChange{"priority", task.Priority, patch.Priority.Value})
		task.Priority = patch.Priority.Value
	}
	if patch.Type.Set && patch.Type.Value != task.Type {
		t.Diff = append(t.Diff, FieldChange{"type", task.Type, patch.Type.Value})
		task.Type = patch.Type.Value
	}
	if patch.SprintID.Set {
		next := optionalID(patch.SprintID)
		if !sameID(task.SprintID, next) {
			t.Diff = append(t.Diff, FieldChange{"sprint_id", idOrNil(task.SprintID), idOrNil(next)})
			task.SprintID = next
		}
	}
	if patch.ParentTaskID.Set {
		next := optionalID(patch.ParentTaskID)
		if !sameID(task.ParentTaskID, next) {
			t.Diff = append(t.Diff, FieldChange{"parent_task_id", idOrNil(task.ParentTaskID), idOrNil(next)})
			task.ParentTaskID = next
		}
	}
	if patch.DueDate.Set {
		var next *time.Time
		if !patch.DueDate.Null {
			d := patch.DueDate.Value
			next = &d
		}
		if !sameTime(task.DueDate, next) {
			t.Diff = append(t.Diff, FieldChange{"due_date", timeOrNil(task.DueDate), timeOrNil(next)})
			task.DueDate = next
		}
	}
	if patch.Position.Set && patch.Position.Value != task.Position {
		t.Diff = append(t.Diff, FieldChange{"position", task.Position, patch.Position.Value})
		task.Position = patch.Position.Value
	}
	if patch.LabelIDs.Set {
		current := taskLabelIDs(task)
		if !slices.Equal(current, labelIDs) {
			t.Diff = append(t.Diff, FieldChange{"label_ids", current, labelIDs})
			t.LabelIDs = labelIDs
		}
	}

	return t, nil
}

// normalizeIDs drops duplicates and sorts, never returning nil.
func normalizeIDs(ids []uint64) []uint64 {
	out := uniqueUint64(ids)
	slices.Sort(out)
	return out
}

func taskLabelIDs(task *models.Task) []uint64 {
	ids := make([]uint64, len(task.Labels))
	for i, l := range task.Labels {
		ids[i] = l.ID
	}
	return normalizeIDs(ids)
}

func isJSONObject(raw []byte) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil
}

func jsonEqual(a, b datatypes.JSON) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	var x, y bytes.Buffer
	if json.Compact(&x, a) != nil || json.Compact(&y, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(x.Bytes(), y.Bytes())
}

func rawOrNil(raw datatypes.JSON) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return json.RawMessage(raw)
}

func optionalID(o Optional[uint64]) *uint64 {
	if o.Null {
		return nil
	}
	id := o.Value
	return &id
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idOrNil(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
