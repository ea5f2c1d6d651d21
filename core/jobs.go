package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

var statusRank = map[JobStatus]int{
	JobQueued:     0,
	JobProcessing: 1,
	JobDone:       2,
	JobError:      2,
}

// JobStore keeps every job for the lifetime of the process. Completed jobs
// are never evicted; callers poll by job id or video id and reads are
// cheap snapshots. Transitions are monotonic: progress never decreases and
// status never moves backwards or out of a terminal state.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // creation order, for latest-by-video lookups
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create allocates a queued job and returns its id.
func (s *JobStore) Create(videoID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.jobs[id] = &Job{
		JobID:   id,
		VideoID: videoID,
		Status:  JobQueued,
		Stage:   "Queued",
		StartTs: time.Now(),
	}
	s.order = append(s.order, id)
	return id
}

// Update applies fn to the job under the lock, then clamps the result so
// progress and status cannot regress. Unknown ids are ignored.
func (s *JobStore) Update(jobID string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return
	}
	prevProgress := j.Progress
	prevStatus := j.Status
	fn(j)
	if j.Progress < prevProgress {
		j.Progress = prevProgress
	}
	if j.Progress > 100 {
		j.Progress = 100
	}
	if statusRank[j.Status] < statusRank[prevStatus] {
		j.Status = prevStatus
	}
	// terminal states stick
	if prevStatus == JobDone || prevStatus == JobError {
		j.Status = prevStatus
	}
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(jobID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// LatestForVideo returns a snapshot of the most recently created job for a
// video, if any.
func (s *JobStore) LatestForVideo(videoID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; j.VideoID == videoID {
			return *j, true
		}
	}
	return Job{}, false
}

// Active reports whether the video has a job that is still queued or
// processing.
func (s *JobStore) Active(videoID string) bool {
	j, ok := s.LatestForVideo(videoID)
	return ok && (j.Status == JobQueued || j.Status == JobProcessing)
}
