package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the nightly ledger integrity scan.
	TaskLedgerIntegrity = "ledger:integrity"
)

// NewLedgerIntegrityTask constructs an Asynq task. The scan takes no payload;
// it always covers the whole ledger.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}
