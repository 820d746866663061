// internal/app/failure.go
package app

// FailureType classifies a recorded processing failure for downstream alerting.
type FailureType string

const (
	FailureHistoryInsert      FailureType = "HISTORY_INSERT_FAILED"
	FailureStatusUpdate       FailureType = "STATUS_UPDATE_FAILED"
	FailureNotificationInsert FailureType = "NOTIFICATION_INSERT_FAILED" // logged only
	FailureTotalSweep         FailureType = "TOTAL_SWEEP_FAILURE"
)

// Failure is a structured record of something that went wrong during a run.
// Partial failures are an expected outcome and are returned, not raised.
type Failure struct {
	Type           FailureType `json:"type"`
	Message        string      `json:"message"`
	AccountID      int64       `json:"accountId,omitempty"`
	CompanyName    string      `json:"companyName,omitempty"`
	ProcessingDate string      `json:"processingDate"`
	Details        string      `json:"details,omitempty"`
}

func hasFailure(failures []Failure, typ FailureType) bool {
	for _, f := range failures {
		if f.Type == typ {
			return true
		}
	}
	return false
}
