// Package storage provides the file-backed persistence layer for tasks and
// conversations.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/valter-silva-au/todo-chat/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrTaskNotFound is returned when a task id does not exist for the given
// user. Ownership mismatches surface as not-found on purpose: task ids are
// user-scoped and must not leak across users.
var ErrTaskNotFound = errors.New("task not found")

// TaskFile represents the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string              `yaml:"version"`
	NextID  int                 `yaml:"next_id"`
	Tasks   map[int]models.Task `yaml:"tasks"`
}

// TaskUpdates carries the optional field changes for an update operation.
// Nil pointers mean "leave unchanged".
type TaskUpdates struct {
	Title       *string
	Description *string
}

// TaskStore defines the interface for the user-scoped task registry.
type TaskStore interface {
	AddTask(userID, title, description string) (*models.Task, error)
	GetTask(userID string, taskID int) (*models.Task, error)
	ListTasks(userID string, filter models.ListFilter) ([]models.Task, error)
	UpdateTask(userID string, taskID int, updates TaskUpdates) (*models.Task, error)
	CompleteTask(userID string, taskID int) (*models.Task, error)
	DeleteTask(userID string, taskID int) error
	Load() error
	Save() error
}

type fileTaskStore struct {
	basePath string
	mu       sync.Mutex
	data     TaskFile
	now      func() time.Time
}

// NewTaskStore creates a TaskStore backed by a tasks.yaml file in the given
// base directory.
func NewTaskStore(basePath string) TaskStore {
	return &fileTaskStore{
		basePath: basePath,
		data: TaskFile{
			Version: "1.0",
			NextID:  1,
			Tasks:   make(map[int]models.Task),
		},
		now: time.Now,
	}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, "tasks.yaml")
}

func (s *fileTaskStore) AddTask(userID, title, description string) (*models.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("adding task: title must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task := models.Task{
		ID:          s.data.NextID,
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      models.StatusOpen,
		Created:     now,
		Updated:     now,
	}
	s.data.NextID++
	s.data.Tasks[task.ID] = task

	if err := s.save(); err != nil {
		return nil, fmt.Errorf("adding task: %w", err)
	}
	return &task, nil
}

func (s *fileTaskStore) GetTask(userID string, taskID int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID, taskID)
}

// get looks up a task and enforces user scoping. Callers must hold s.mu.
func (s *fileTaskStore) get(userID string, taskID int) (*models.Task, error) {
	task, exists := s.data.Tasks[taskID]
	if !exists || task.UserID != userID {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrTaskNotFound)
	}
	return &task, nil
}

func (s *fileTaskStore) ListTasks(userID string, filter models.ListFilter) ([]models.Task, error) {
	if filter == "" {
		filter = models.FilterAll
	}
	if !filter.Valid() {
		return nil, fmt.Errorf("listing tasks: invalid filter %q", filter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Task
	for _, task := range s.data.Tasks {
		if task.UserID != userID {
			continue
		}
		switch filter {
		case models.FilterOpen:
			if task.Status != models.StatusOpen {
				continue
			}
		case models.FilterCompleted:
			if task.Status != models.StatusCompleted {
				continue
			}
		}
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *fileTaskStore) UpdateTask(userID string, taskID int, updates TaskUpdates) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.get(userID, taskID)
	if err != nil {
		return nil, err
	}

	if updates.Title != nil {
		if *updates.Title == "" {
			return nil, fmt.Errorf("updating task %d: title must not be empty", taskID)
		}
		task.Title = *updates.Title
	}
	if updates.Description != nil {
		task.Description = *updates.Description
	}
	task.Updated = s.now()
	s.data.Tasks[taskID] = *task

	if err := s.save(); err != nil {
		return nil, fmt.Errorf("updating task %d: %w", taskID, err)
	}
	return task, nil
}

func (s *fileTaskStore) CompleteTask(userID string, taskID int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.get(userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Status = models.StatusCompleted
	task.Updated = s.now()
	s.data.Tasks[taskID] = *task

	if err := s.save(); err != nil {
		return nil, fmt.Errorf("completing task %d: %w", taskID, err)
	}
	return task, nil
}

func (s *fileTaskStore) DeleteTask(userID string, taskID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(userID, taskID); err != nil {
		return err
	}
	delete(s.data.Tasks, taskID)

	if err := s.save(); err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	return nil
}

// Load reads tasks.yaml from disk. A missing file leaves the store empty.
func (s *fileTaskStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading tasks: %w", err)
	}

	var file TaskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("loading tasks: parsing yaml: %w", err)
	}
	if file.Tasks == nil {
		file.Tasks = make(map[int]models.Task)
	}
	if file.NextID < 1 {
		file.NextID = 1
	}
	s.data = file
	return nil
}

// Save writes the current task registry to tasks.yaml.
func (s *fileTaskStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save persists without locking. Callers must hold s.mu.
func (s *fileTaskStore) save() error {
	data, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("saving tasks: marshalling yaml: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}
