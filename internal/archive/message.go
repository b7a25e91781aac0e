package archive

import "time"

// MessagePresent is the queue message type for accepted submissions.
const MessagePresent = "present"

// PresentMessage is the queue payload carried from the API to the worker
// for each accepted submission.
type PresentMessage struct {
	StudentID string    `json:"student_id"`
	Code      string    `json:"code"`
	At        time.Time `json:"at"`
}
