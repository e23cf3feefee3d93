package jobs

const (
	// TaskDrainQueue replays all unsynced queued mutations.
	TaskDrainQueue = "sync:drain"
	// TaskPeriodicSync is the scheduled background drain.
	TaskPeriodicSync = "sync:periodic"
)

type DrainPayload struct {
	Reason string `json:"reason,omitempty"`
}
