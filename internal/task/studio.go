package task

import (
	"fmt"
	"log/slog"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"
)

// Studio holds one independent Dispatcher per tool. Dispatchers share the
// artifact store and generator but no job state.
type Studio struct {
	dispatchers map[domain.Tool]*Dispatcher
	logger      *slog.Logger
}

// NewStudio creates a dispatcher for every tool.
func NewStudio(deps Dependencies, logger *slog.Logger) (*Studio, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &Studio{
		dispatchers: make(map[domain.Tool]*Dispatcher, len(domain.Tools())),
		logger:      logger.With("component", "studio"),
	}
	for _, tool := range domain.Tools() {
		d, err := NewDispatcher(tool, deps, logger)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("failed to create %s dispatcher: %w", tool, err)
		}
		s.dispatchers[tool] = d
	}
	return s, nil
}

// Dispatcher returns the dispatcher for tool.
func (s *Studio) Dispatcher(tool domain.Tool) (*Dispatcher, error) {
	d, ok := s.dispatchers[tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTool, tool)
	}
	return d, nil
}

// Start starts every dispatcher.
func (s *Studio) Start() error {
	for _, tool := range domain.Tools() {
		if err := s.dispatchers[tool].Start(); err != nil {
			return fmt.Errorf("failed to start %s dispatcher: %w", tool, err)
		}
	}
	s.logger.Info("studio started", "tools", len(s.dispatchers))
	return nil
}

// Stop stops every dispatcher.
func (s *Studio) Stop() {
	for _, d := range s.dispatchers {
		d.Stop()
	}
	s.logger.Info("studio stopped")
}
