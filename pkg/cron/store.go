package cron

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const storeVersion = 1

// storeFile is the on-disk JSON shape persisted after every mutation.
type storeFile struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// Store is an in-memory CronStore backed by a JSON file. Every mutating
// operation persists the full job list before returning.
type Store struct {
	mu      sync.Mutex
	path    string
	jobs    map[string]*Job
	order   []string // preserves insertion order for list_jobs
	now     func() time.Time
}

// NewStore loads jobs from path if it exists, or starts empty.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, jobs: make(map[string]*Job), now: time.Now}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read cron store: %w", err)
	}
	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse cron store: %w", err)
	}
	for i := range sf.Jobs {
		j := sf.Jobs[i]
		s.jobs[j.ID] = &j
		s.order = append(s.order, j.ID)
	}
	return s, nil
}

// AddJob inserts job, assigning it a fresh id if empty, and persists.
func (s *Store) AddJob(job Job) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = newJobID()
	}
	now := nowMs(s.now())
	job.CreatedAtMs = now
	job.UpdatedAtMs = now

	s.jobs[job.ID] = &job
	s.order = append(s.order, job.ID)
	if err := s.persistLocked(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// RemoveJob deletes a job by id and persists. Returns false if unknown.
func (s *Store) RemoveJob(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, s.persistLocked()
}

// UpdateJobEnabled flips a job's enabled flag and persists. Returns false
// if unknown.
func (s *Store) UpdateJobEnabled(id string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, nil
	}
	job.Enabled = enabled
	job.UpdatedAtMs = nowMs(s.now())
	return true, s.persistLocked()
}

// ListJobs returns a snapshot of all jobs in insertion order.
func (s *Store) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.jobs[id])
	}
	return out
}

// JobCount returns the number of persisted jobs.
func (s *Store) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// mutateJob applies fn to the job's stored copy, then persists.
func (s *Store) mutateJob(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("unknown cron job %q", id)
	}
	fn(job)
	job.UpdatedAtMs = nowMs(s.now())
	return s.persistLocked()
}

// persistLocked writes the full job set to disk. Caller must hold s.mu.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	sf := storeFile{Version: storeVersion}
	for _, id := range s.order {
		sf.Jobs = append(sf.Jobs, *s.jobs[id])
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cron store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cron store directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

func newJobID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
