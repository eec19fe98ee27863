package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/video"
)

// fakeProber answers by file name.
type fakeProber struct {
	mu    sync.Mutex
	infos map[string]probe.Info
	calls []string
}

func (p *fakeProber) Probe(ctx context.Context, path string) (probe.Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
	info, ok := p.infos[filepath.Base(path)]
	if !ok {
		return probe.Info{}, &probe.Error{Path: path, Err: os.ErrNotExist}
	}
	return info, nil
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeRenderer records jobs and writes a placeholder output.
type fakeRenderer struct {
	mu   sync.Mutex
	jobs []video.Job
	fail map[string]bool // output base names that fail
}

func (r *fakeRenderer) Render(ctx context.Context, job video.Job) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	fail := r.fail[filepath.Base(job.Output)]
	r.mu.Unlock()

	if fail {
		return &video.RenderError{
			Output:      job.Output,
			Diagnostics: "Conversion failed!",
			Err:         fmt.Errorf("exit status 1"),
		}
	}
	if err := os.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return err
	}
	return os.WriteFile(job.Output, []byte("rendered"), 0644)
}

func (r *fakeRenderer) jobCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
