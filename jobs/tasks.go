package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskOverdueReminders scans posted sales invoices past their due date.
	TaskOverdueReminders = "documents:overdue-reminders"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	TenantID int64  `json:"tenant_id"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// OverdueRemindersPayload limits a reminder run to one tenant when TenantID is set.
type OverdueRemindersPayload struct {
	TenantID int64 `json:"tenant_id,omitempty"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// NewOverdueRemindersTask constructs an overdue reminder task.
func NewOverdueRemindersTask(payload OverdueRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueReminders, data), nil
}

// TaskTypes lists the task types the worker understands.
func TaskTypes() []string {
	return []string{TaskTypeSendEmail, TaskOverdueReminders}
}

// NewTask builds a task of the named type with an empty payload, for manual triggers.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskOverdueReminders:
		return NewOverdueRemindersTask(OverdueRemindersPayload{})
	default:
		return nil, ErrUnknownTask
	}
}
