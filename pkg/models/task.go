package models

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusOpen      TaskStatus = "open"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether the status is one of the known states.
func (s TaskStatus) Valid() bool {
	return s == StatusOpen || s == StatusCompleted
}

// Task represents a single todo item. IDs are assigned by the task store,
// never by the pipeline; the pipeline only holds read-only snapshots for
// reference resolution.
type Task struct {
	ID          int        `yaml:"id" json:"id"`
	UserID      string     `yaml:"user_id" json:"user_id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Status      TaskStatus `yaml:"status" json:"status"`
	Created     time.Time  `yaml:"created" json:"created"`
	Updated     time.Time  `yaml:"updated" json:"updated"`
}

// ListFilter selects which tasks a list operation returns.
type ListFilter string

const (
	FilterAll       ListFilter = "all"
	FilterOpen      ListFilter = "open"
	FilterCompleted ListFilter = "completed"
)

// Valid reports whether the filter is one of the known values.
func (f ListFilter) Valid() bool {
	return f == FilterAll || f == FilterOpen || f == FilterCompleted
}
