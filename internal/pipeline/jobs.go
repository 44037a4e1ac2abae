package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chriscarrollsmith/mindmap-generator/internal/concept"
	"github.com/chriscarrollsmith/mindmap-generator/internal/render"
)

// JobStatus represents the state of a mindmap job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusLoading    JobStatus = "loading"
	StatusGenerating JobStatus = "generating"
	StatusRendering  JobStatus = "rendering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one document on its way to a rendered mindmap.
type Job struct {
	mu sync.Mutex

	ID       string
	Status   JobStatus
	Phase    string
	Filename string
	Title    string

	Progress Progress

	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Exactly one of fileData and text is set on submission.
	fileData []byte
	text     string
	outputs  map[render.Format]string
	errors   []string
}

// Progress counts what the finished tree holds.
type Progress struct {
	Words    int      `json:"words"`
	Topics   int      `json:"topics"`
	Nodes    int      `json:"nodes"`
	Formats  []string `json:"formats"`
	Errors   []string `json:"errors"`
	Duration string   `json:"duration,omitempty"`
}

// NewFileJob queues an uploaded file.
func NewFileJob(filename string, data []byte) *Job {
	j := newJob(filename)
	j.fileData = data
	return j
}

// NewTextJob queues raw text under an optional title.
func NewTextJob(title, text string) *Job {
	j := newJob("")
	j.Title = title
	j.text = text
	return j
}

func newJob(filename string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len is the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		idle := now.Sub(job.UpdatedAt)
		job.mu.Unlock()
		if idle > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.AddError(err.Error())
	j.SetStatus(StatusFailed, phase)
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetSource records the loaded text and the title to render under.
func (j *Job) SetSource(title, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Title == "" {
		j.Title = title
	}
	j.text = text
	j.fileData = nil
	j.ContentHash = ContentHashHex([]byte(text))
	j.UpdatedAt = time.Now()
}

// Source returns the raw upload and the text, whichever is set.
func (j *Job) Source() (data []byte, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData, j.text
}

// SetResult stores the rendered outputs and tree statistics.
func (j *Job) SetResult(tree *concept.Tree, words int, outputs map[render.Format]string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outputs = outputs
	j.Progress.Words = words
	j.Progress.Topics = tree.TopicCount()
	j.Progress.Nodes = tree.Count()
	j.Progress.Duration = time.Since(j.CreatedAt).Round(time.Millisecond).String()
	j.UpdatedAt = time.Now()
}

// Output returns the rendered output in format f once the job completed.
func (j *Job) Output(f render.Format) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out, ok := j.outputs[f]
	return out, ok
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename,omitempty"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.errors...)
	p.Formats = make([]string, 0, len(j.outputs))
	for f := range j.outputs {
		p.Formats = append(p.Formats, string(f))
	}
	sort.Strings(p.Formats)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
