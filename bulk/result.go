package bulk

// State is the lifecycle state of one bulk call.
type State int

const (
	// StateIdle means no chunk has been started yet.
	StateIdle State = iota
	// StateStreaming means chunks are being executed.
	StateStreaming
	// StateCompleted means every chunk was committed.
	StateCompleted
	// StateFailed means a chunk failed or the context was canceled.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports how far a bulk call got. Chunks, Rows and Affected only
// count chunks that executed successfully; those stay committed when a later
// chunk fails.
type Result struct {
	State State
	// Planned is the number of chunks the input was split into.
	Planned int
	// Chunks is the number of committed chunks.
	Chunks int
	// Rows is the number of input rows in committed chunks.
	Rows int
	// Affected is the sum of per-chunk affected (or returned) row counts.
	Affected int64
	// FailedChunk is the index of the chunk that failed or was not started
	// because of cancellation. -1 unless State is StateFailed at a chunk.
	FailedChunk int
	// FailedOffset is the input position of FailedChunk's first row.
	FailedOffset int
}

// Remaining is the number of input rows that were not committed.
func (r Result) Remaining(total int) int {
	return total - r.Rows
}
