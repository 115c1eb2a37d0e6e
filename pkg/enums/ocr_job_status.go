package enums

import "fmt"

// OCRJobStatus tracks an OCR job through processing.
type OCRJobStatus string

const (
	OCRJobStatusPending    OCRJobStatus = "pending"
	OCRJobStatusProcessing OCRJobStatus = "processing"
	OCRJobStatusCompleted  OCRJobStatus = "completed"
	OCRJobStatusFailed     OCRJobStatus = "failed"
)

var validOCRJobStatuses = []OCRJobStatus{
	OCRJobStatusPending,
	OCRJobStatusProcessing,
	OCRJobStatusCompleted,
	OCRJobStatusFailed,
}

var ocrJobTransitions = map[OCRJobStatus][]OCRJobStatus{
	OCRJobStatusPending:    {OCRJobStatusProcessing, OCRJobStatusFailed},
	OCRJobStatusProcessing: {OCRJobStatusCompleted, OCRJobStatusFailed},
	OCRJobStatusFailed:     {OCRJobStatusPending},
}

// String implements fmt.Stringer.
func (s OCRJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OCRJobStatus.
func (s OCRJobStatus) IsValid() bool {
	for _, candidate := range validOCRJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OCRJobStatus) CanTransitionTo(next OCRJobStatus) bool {
	for _, candidate := range ocrJobTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOCRJobStatus converts raw input into an OCRJobStatus.
func ParseOCRJobStatus(value string) (OCRJobStatus, error) {
	for _, candidate := range validOCRJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ocr job status %q", value)
}
