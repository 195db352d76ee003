package interview

// Status is the lifecycle state of an interview. It only moves forward.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// transitions lists every legal move. Re-entering in_progress is allowed so a
// reconnecting candidate can resume.
var transitions = map[Status][]Status{
	StatusCreated:    {StatusInProgress},
	StatusInProgress: {StatusInProgress, StatusCompleted},
	StatusCompleted:  nil,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
