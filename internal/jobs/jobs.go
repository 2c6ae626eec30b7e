package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

type Result struct {
	Mode     string `json:"mode"`
	Rows     int    `json:"rows"`
	Sheet    string `json:"sheet"`
	Output   string `json:"-"`        // Full path
	Filename string `json:"filename"` // Just filename for download
}

// Job tracks one asynchronous run. All fields are guarded by mu.
type Job struct {
	ID        string
	CreatedAt time.Time

	mu       sync.RWMutex
	status   Status
	logs     []string
	progress int // 0-100
	result   *Result
	err      string
	now      func() time.Time
}

// Snapshot is a consistent copy of a job's mutable state.
type Snapshot struct {
	ID       string   `json:"id"`
	Status   Status   `json:"status"`
	Logs     []string `json:"logs"`
	Progress int      `json:"progress"`
	Result   *Result  `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (j *Job) stamp() string {
	return j.now().Format("15:04:05")
}

func (j *Job) Log(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", j.stamp(), msg))
}

func (j *Job) SetProgress(current, total int, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.progress = int(float64(current) / float64(total) * 100)
	}
	if msg != "" {
		j.logs = append(j.logs, fmt.Sprintf("[%s] %s", j.stamp(), msg))
	}
}

func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusError
	j.err = msg
	j.logs = append(j.logs, "[ERROR] "+msg)
}

func (j *Job) Complete(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusDone
	j.result = res
	j.progress = 100
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", j.stamp(), "Job completed."))
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	var res *Result
	if j.result != nil {
		r := *j.result
		res = &r
	}
	return Snapshot{
		ID:       j.ID,
		Status:   j.status,
		Logs:     logs,
		Progress: j.progress,
		Result:   res,
		Error:    j.err,
	}
}

// Store keeps jobs in memory for the life of the process.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job), now: time.Now}
}

func (s *Store) New() *Job {
	j := &Job{
		ID:        uuid.New().String(),
		CreatedAt: s.now(),
		status:    StatusRunning,
		logs:      []string{},
		now:       s.now,
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	return j
}

func (s *Store) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}
