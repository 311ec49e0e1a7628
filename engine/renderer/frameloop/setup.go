package frameloop

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vkbase/engine/core"
)

// Scope tells when a stage is recreated.
type Scope int

const (
	// ScopeDevice stages are created once and live until shutdown.
	ScopeDevice Scope = iota
	// ScopeSwapchain stages depend on the swapchain and are recreated on
	// every rebuild.
	ScopeSwapchain
)

func (s Scope) String() string {
	if s == ScopeSwapchain {
		return "swapchain"
	}
	return "device"
}

// Stage is one named step of resource creation. Destroy releases what
// Create made and may be nil.
type Stage struct {
	Name    string
	Scope   Scope
	Create  func(Extent) error
	Destroy func()
}

// Setup runs stages in declaration order and tears them down in reverse.
// Device-scope stages must not depend on swapchain-scope ones.
type Setup struct {
	stages     []Stage
	live       []bool
	created    bool
	generation int
}

func NewSetup(stages ...Stage) (*Setup, error) {
	s := &Setup{}
	if err := s.Add(stages...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends stages. It is only valid before Create.
func (s *Setup) Add(stages ...Stage) error {
	if s.created {
		return errors.New("stages cannot be added after creation")
	}
	for _, st := range stages {
		if st.Name == "" {
			return errors.New("stage name must not be empty")
		}
		if st.Create == nil {
			return fmt.Errorf("stage %q has no create function", st.Name)
		}
		for _, existing := range s.stages {
			if existing.Name == st.Name {
				return fmt.Errorf("duplicate stage %q", st.Name)
			}
		}
		s.stages = append(s.stages, st)
		s.live = append(s.live, false)
	}
	return nil
}

// Create runs every stage. When a stage fails, the stages created before it
// are destroyed and the error is returned.
func (s *Setup) Create(extent Extent) error {
	if s.created {
		return errors.New("setup already created")
	}
	for i := range s.stages {
		if err := s.createStage(i, extent); err != nil {
			s.Destroy()
			return err
		}
	}
	s.created = true
	return nil
}

// Rebuild destroys every swapchain-scope stage in reverse order and then
// recreates them in declaration order. The generation only advances once
// every stage is back.
func (s *Setup) Rebuild(extent Extent) error {
	if !s.created {
		return errors.New("setup not created")
	}
	for i := len(s.stages) - 1; i >= 0; i-- {
		if s.stages[i].Scope == ScopeSwapchain {
			s.destroyStage(i)
		}
	}
	for i := range s.stages {
		if s.stages[i].Scope != ScopeSwapchain {
			continue
		}
		if err := s.createStage(i, extent); err != nil {
			return err
		}
	}
	s.generation++
	return nil
}

// Destroy tears down every live stage in reverse order. It is safe to call
// more than once.
func (s *Setup) Destroy() {
	for i := len(s.stages) - 1; i >= 0; i-- {
		s.destroyStage(i)
	}
	s.created = false
}

// Generation counts rebuilds since creation.
func (s *Setup) Generation() int {
	return s.generation
}

// Live returns the names of the live stages in declaration order.
func (s *Setup) Live() []string {
	var names []string
	for i, st := range s.stages {
		if s.live[i] {
			names = append(names, st.Name)
		}
	}
	return names
}

func (s *Setup) createStage(i int, extent Extent) error {
	st := s.stages[i]
	core.LogDebug("creating %s stage %q", st.Scope, st.Name)
	if err := st.Create(extent); err != nil {
		return fmt.Errorf("stage %q: %w", st.Name, err)
	}
	s.live[i] = true
	return nil
}

func (s *Setup) destroyStage(i int) {
	if !s.live[i] {
		return
	}
	st := s.stages[i]
	core.LogDebug("destroying %s stage %q", st.Scope, st.Name)
	if st.Destroy != nil {
		st.Destroy()
	}
	s.live[i] = false
}
