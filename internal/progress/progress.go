// Package progress reports the progress of long running install steps.
package progress

import (
	"io"
	"sync"

	"github.com/gosuri/uiprogress"
)

// Meter receives progress updates for one step at a time.
type Meter interface {
	// Start begins a step of total units. A total below 1 is treated as 1.
	Start(label string, total int)
	// Update reports the number of units done so far.
	Update(done int)
	// End completes the current step.
	End()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Update(int)        {}
func (Nop) End()              {}

// Bar renders each step as a terminal progress bar.
type Bar struct {
	out io.Writer

	mu  sync.Mutex
	p   *uiprogress.Progress
	bar *uiprogress.Bar
}

// NewBar returns a meter drawing to out.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

func (b *Bar) Start(label string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stop()

	if total < 1 {
		total = 1
	}
	b.p = uiprogress.New()
	b.p.SetOut(b.out)
	b.bar = b.p.AddBar(total).AppendCompleted()
	b.bar.PrependFunc(func(*uiprogress.Bar) string { return label })
	b.p.Start()
}

func (b *Bar) Update(done int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return
	}
	_ = b.bar.Set(min(done, b.bar.Total))
}

func (b *Bar) End() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stop()
}

func (b *Bar) stop() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Set(b.bar.Total)
	b.p.Stop()
	b.p, b.bar = nil, nil
}
