package compute

import (
	"context"
	"fmt"
	"sync"

	"statflow/domain/core"
	"statflow/internal"
	"statflow/ports"
)

// DefaultAlpha is the significance level used when a request omits one
const DefaultAlpha = 0.05

type handler func(req *ports.ComputeRequest) (*ports.ComputeResponse, error)

// Service is the local statistical-test backend. It implements
// ports.ComputeBackend with a fixed operation registry; Invoke before
// Initialize fails with ErrNotReady so callers cannot race the
// lifecycle.
type Service struct {
	logger *internal.Logger

	mu       sync.RWMutex
	handlers map[ports.Operation]handler
	ready    bool
}

// NewService creates an uninitialized compute service
func NewService(logger *internal.Logger) *Service {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Service{logger: logger}
}

// Initialize registers the operation handlers. Safe to call more than
// once; later calls are no-ops.
func (s *Service) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	s.handlers = map[ports.Operation]handler{
		ports.OpDescriptive: s.descriptive,
		ports.OpNormality:   s.normality,
		ports.OpLevene:      s.levene,
		ports.OpTTest:       s.studentTTest,
		ports.OpWelch:       s.welch,
		ports.OpMannWhitney: s.mannWhitney,
		ports.OpANOVA:       s.anova,
		ports.OpKruskal:     s.kruskalWallis,
		ports.OpPostHoc:     s.postHoc,
		ports.OpAutoSelect:  s.autoSelect,
	}
	s.ready = true
	s.logger.Info("[Compute] registry initialized with %d operations", len(s.handlers))
	return nil
}

// Ready reports whether Initialize has completed
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Invoke runs one registered operation against the request
func (s *Service) Invoke(ctx context.Context, op ports.Operation, req *ports.ComputeRequest) (*ports.ComputeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	ready := s.ready
	h := s.handlers[op]
	s.mu.RUnlock()

	if !ready {
		return nil, core.ErrNotReady
	}
	if h == nil {
		return nil, fmt.Errorf("operation %q: %w", op, core.ErrUnknownOperation)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	normalized := normalizeRequest(req)
	return h(normalized)
}

func validateRequest(req *ports.ComputeRequest) error {
	if req == nil || len(req.Groups) == 0 {
		return fmt.Errorf("no groups: %w", core.ErrInsufficientData)
	}
	for i, g := range req.Groups {
		if len(g) == 0 {
			return fmt.Errorf("group %d is empty: %w", i, core.ErrInsufficientData)
		}
	}
	return nil
}

func errInsufficient(n int) error {
	return fmt.Errorf("%d observations: %w", n, core.ErrInsufficientData)
}

// normalizeRequest fills default labels and alpha without touching the
// caller's request
func normalizeRequest(req *ports.ComputeRequest) *ports.ComputeRequest {
	out := &ports.ComputeRequest{
		Groups: req.Groups,
		Labels: req.Labels,
		Alpha:  req.Alpha,
	}
	if out.Alpha <= 0 || out.Alpha >= 1 {
		out.Alpha = DefaultAlpha
	}
	if len(out.Labels) < len(out.Groups) {
		labels := make([]string, len(out.Groups))
		copy(labels, out.Labels)
		for i := len(out.Labels); i < len(out.Groups); i++ {
			labels[i] = fmt.Sprintf("group_%d", i+1)
		}
		out.Labels = labels
	}
	return out
}
