package testutil

import (
	"platelog/internal/journal"
	"platelog/internal/review"
	"platelog/internal/store"
)

// ServiceHarness bundles a Service with the doubles behind it so tests can
// inspect and steer them.
type ServiceHarness struct {
	Service   *review.Service
	Store     *store.Memory
	Journal   *journal.MemoryJournal
	Pipeline  *StubPipeline
	Unwrapper *StubUnwrapper
	Clock     *StubClock
}

// NewServiceHarness creates a Service wired entirely to in-memory doubles.
func NewServiceHarness() *ServiceHarness {
	mem := store.NewMemory()
	jnl := journal.NewMemoryJournal()
	pipe := NewStubPipeline()
	unwrap := NewStubUnwrapper()
	clock := FixedClock()

	svc := review.NewService(mem, mem, pipe, unwrap, jnl, review.NewNopLogger(), clock, NewStubIDGenerator())

	return &ServiceHarness{
		Service:   svc,
		Store:     mem,
		Journal:   jnl,
		Pipeline:  pipe,
		Unwrapper: unwrap,
		Clock:     clock,
	}
}
