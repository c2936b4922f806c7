package testutil

import (
	"context"
	"sync"

	"platelog/internal/review"
)

// StubPipeline is an image pipeline double. It returns a fixed artifact (or
// error) regardless of the path and records the paths it was asked to process.
type StubPipeline struct {
	mu       sync.Mutex
	artifact *review.Artifact
	err      error
	paths    []string
}

// NewStubPipeline creates a pipeline that yields a small JPEG-typed artifact.
func NewStubPipeline() *StubPipeline {
	return &StubPipeline{
		artifact: &review.Artifact{
			Name:        "photo.jpg",
			ContentType: "image/jpeg",
			Bytes:       []byte("jpeg-bytes"),
		},
	}
}

// FailWith makes every Process call return err.
func (p *StubPipeline) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Return makes every Process call return art.
func (p *StubPipeline) Return(art *review.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifact = art
}

func (p *StubPipeline) Process(_ context.Context, path string) (*review.Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	if p.err != nil {
		return nil, p.err
	}
	art := *p.artifact
	return &art, nil
}

// Processed returns the paths passed to Process, in call order.
func (p *StubPipeline) Processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.paths))
	copy(out, p.paths)
	return out
}

var _ review.ImagePipeline = (*StubPipeline)(nil)
