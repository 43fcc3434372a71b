package model

import "time"

type Task struct {
	ID          int64
	Title       string
	Description string
	Payout      int64
	CreatedBy   string
	CreatedDate time.Time
}

// TaskView is a task as shown to a particular viewer. SubmissionStatus is set only for
// members that already submitted proof for the task.
type TaskView struct {
	Task
	SubmissionStatus *ProofStatus
}
