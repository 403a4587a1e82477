package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/taskboard/taskboard/server/internal/store"
)

// ErrNotFound is returned when no task has the requested title.
var ErrNotFound = errors.New("task not found")

// ValidationError reports a missing or empty required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Event actions passed to observers.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes one successful mutation. Tasks holds the created or updated
// task, or every task removed by a delete.
type Event struct {
	Action string       `json:"action"`
	Tasks  []store.Task `json:"tasks"`
	At     time.Time    `json:"at"`
}

// CreateInput is the body of a create request.
type CreateInput struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// UpdateInput is the body of an update request.
type UpdateInput struct {
	CurrentTitle string `json:"currentTitle"`
	NewTitle     string `json:"newTitle"`
	NewStatus    string `json:"newStatus"`
}

// DeleteInput is the body of a delete request.
type DeleteInput struct {
	Title string `json:"title"`
}

// Service runs task operations against a store.Store.
type Service struct {
	store     store.Store
	now       func() time.Time // injectable for deterministic tests
	serialize bool
	observers []func(Event)

	writeMu sync.Mutex

	idMu   sync.Mutex
	lastID int64
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to mint task IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSerializedWrites controls whether mutations hold a lock across their
// load and save. Enabled by default.
func WithSerializedWrites(on bool) Option {
	return func(s *Service) { s.serialize = on }
}

// WithObserver registers fn to be called after every successful mutation.
// Observers run synchronously on the request goroutine, after the write lock
// is released, and must not block.
func WithObserver(fn func(Event)) Option {
	return func(s *Service) { s.observers = append(s.observers, fn) }
}

// New creates a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		now:       time.Now,
		serialize: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns the full collection in stored order.
func (s *Service) List(ctx context.Context) (store.Collection, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	if c == nil {
		c = store.Collection{}
	}
	return c, nil
}

// Create appends a new task and returns it. Duplicate titles are allowed.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Task, error) {
	if in.Title == "" || in.Status == "" {
		return store.Task{}, &ValidationError{Message: "Title and status are required"}
	}

	var created store.Task
	err := s.mutate(ctx, func(c store.Collection) (store.Collection, error) {
		created = store.Task{
			ID:     s.mintID(c),
			Title:  in.Title,
			Status: in.Status,
		}
		return append(c, created), nil
	})
	if err != nil {
		return store.Task{}, fmt.Errorf("tasks: create: %w", err)
	}

	s.emit(ActionCreated, created)
	return created, nil
}

// Update rewrites the title and status of the first task titled
// in.CurrentTitle. Its ID and position are kept.
func (s *Service) Update(ctx context.Context, in UpdateInput) (store.Task, error) {
	if in.CurrentTitle == "" || in.NewTitle == "" || in.NewStatus == "" {
		return store.Task{}, &ValidationError{Message: "All fields are required"}
	}

	var updated store.Task
	err := s.mutate(ctx, func(c store.Collection) (store.Collection, error) {
		i := indexOfTitle(c, in.CurrentTitle)
		if i < 0 {
			return nil, ErrNotFound
		}
		c[i].Title = in.NewTitle
		c[i].Status = in.NewStatus
		updated = c[i]
		return c, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return store.Task{}, ErrNotFound
		}
		return store.Task{}, fmt.Errorf("tasks: update: %w", err)
	}

	s.emit(ActionUpdated, updated)
	return updated, nil
}

// Delete removes every task titled in.Title and returns the removed tasks.
func (s *Service) Delete(ctx context.Context, in DeleteInput) ([]store.Task, error) {
	if in.Title == "" {
		return nil, &ValidationError{Message: "Title is required"}
	}

	var removed []store.Task
	err := s.mutate(ctx, func(c store.Collection) (store.Collection, error) {
		kept := make(store.Collection, 0, len(c))
		for _, t := range c {
			if t.Title == in.Title {
				removed = append(removed, t)
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == len(c) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tasks: delete: %w", err)
	}

	s.emit(ActionDeleted, removed...)
	return removed, nil
}

// mutate loads the collection, applies fn, and saves the result. When fn
// returns an error nothing is saved.
func (s *Service) mutate(ctx context.Context, fn func(store.Collection) (store.Collection, error)) error {
	if s.serialize {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	c, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(c)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, next)
}

func (s *Service) emit(action string, changed ...store.Task) {
	if len(s.observers) == 0 {
		return
	}
	ev := Event{Action: action, Tasks: changed, At: s.now().UTC()}
	for _, fn := range s.observers {
		fn(ev)
	}
}

// mintID returns the current Unix millisecond timestamp as a string, bumped
// past every numeric ID in c and every ID minted before, so IDs stay unique
// when creates land in the same millisecond.
func (s *Service) mintID(c store.Collection) string {
	id := s.now().UnixMilli()
	for _, t := range c {
		if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n >= id {
			id = n + 1
		}
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// indexOfTitle returns the lowest index whose title equals title, or -1.
func indexOfTitle(c store.Collection, title string) int {
	for i, t := range c {
		if t.Title == title {
			return i
		}
	}
	return -1
}
