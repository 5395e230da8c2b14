package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Stage is the lifecycle contract for pipeline components that hold
// resources: filters, sources and sinks may implement it to hook into
// startup and shutdown.
type Stage interface {
	// Name returns the unique name of the stage.
	Name() string

	// Load performs initialization. An error aborts pipeline startup.
	Load() error

	// Shutdown releases resources. The manager keeps shutting down the
	// remaining stages even if one fails.
	Shutdown() error
}

// Predefined errors for stage management.
var (
	ErrStageAlreadyRegistered = errors.New("pipeline: stage name is already registered")
	ErrStageNotFound          = errors.New("pipeline: stage not found")
)

// StageManager tracks registered stages and runs their lifecycle in
// registration order (shutdown in reverse).
type StageManager struct {
	mu     sync.Mutex
	stages map[string]Stage
	order  []string
	loaded map[string]bool
}

// NewStageManager creates an empty StageManager.
func NewStageManager() *StageManager {
	return &StageManager{
		stages: make(map[string]Stage),
		loaded: make(map[string]bool),
	}
}

// Register adds a stage. Registration order determines load order.
func (m *StageManager) Register(s Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := s.Name()
	if _, exists := m.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}
	m.stages[name] = s
	m.order = append(m.order, name)
	log.Debug().Str("stage", name).Msg("stage registered")
	return nil
}

// Get retrieves a registered stage by name.
func (m *StageManager) Get(name string) (Stage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stages[name]
	return s, ok
}

// LoadAll loads every registered stage in order. If a stage fails, the
// stages loaded before it are shut down in reverse order and the original
// load error is returned.
func (m *StageManager) LoadAll() error {
	m.mu.Lock()
	order := append([]string(nil), m.order...)
	m.mu.Unlock()

	var done []string
	for _, name := range order {
		m.mu.Lock()
		s := m.stages[name]
		m.mu.Unlock()

		if err := s.Load(); err != nil {
			log.Error().Str("stage", name).Err(err).Msg("stage failed to load, rolling back")
			m.shutdownStages(done)
			return fmt.Errorf("pipeline: loading stage %s: %w", name, err)
		}

		m.mu.Lock()
		m.loaded[name] = true
		m.mu.Unlock()
		done = append(done, name)
		log.Info().Str("stage", name).Msg("stage loaded")
	}
	return nil
}

// ShutdownAll shuts down every loaded stage in reverse registration order.
// Errors are collected and joined; one failing stage does not stop the rest.
func (m *StageManager) ShutdownAll() error {
	m.mu.Lock()
	order := append([]string(nil), m.order...)
	m.mu.Unlock()
	return m.shutdownStages(order)
}

func (m *StageManager) shutdownStages(names []string) error {
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]

		m.mu.Lock()
		s := m.stages[name]
		isLoaded := m.loaded[name]
		m.mu.Unlock()

		if s == nil || !isLoaded {
			continue
		}
		if err := s.Shutdown(); err != nil {
			log.Error().Str("stage", name).Err(err).Msg("stage failed to shut down")
			errs = append(errs, fmt.Errorf("pipeline: shutting down stage %s: %w", name, err))
		} else {
			log.Info().Str("stage", name).Msg("stage shut down")
		}

		m.mu.Lock()
		delete(m.loaded, name)
		m.mu.Unlock()
	}
	return errors.Join(errs...)
}
