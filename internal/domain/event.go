package domain

const (
	EventNameResultSaved = "result.saved"
)

type EventResultSaved struct {
	Result Result
}

func (EventResultSaved) Name() string { return EventNameResultSaved }
