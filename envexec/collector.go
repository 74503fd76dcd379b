package envexec

import (
	"bytes"
	"sync"
)

// outputBudget is the byte budget shared by the stdout and stderr collectors
// of one process. onExceed is called once, when the budget is first exhausted.
type outputBudget struct {
	mu       sync.Mutex
	limit    int64
	used     int64
	exceeded bool
	onExceed func()
}

// pipeCollector buffers one output stream of the process
type pipeCollector struct {
	budget *outputBudget
	buff   bytes.Buffer
}

func newOutputBudget(limit Size, onExceed func()) *outputBudget {
	return &outputBudget{
		limit:    int64(limit),
		onExceed: onExceed,
	}
}

func (b *outputBudget) collector() *pipeCollector {
	return &pipeCollector{budget: b}
}

func (b *outputBudget) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}

// Write never fails so the process is not disturbed by a short write;
// content past the budget is dropped.
func (p *pipeCollector) Write(data []byte) (int, error) {
	b := p.budget
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exceeded {
		return len(data), nil
	}
	if b.limit > 0 && b.used+int64(len(data)) > b.limit {
		remain := b.limit - b.used
		p.buff.Write(data[:remain])
		b.used = b.limit
		b.exceeded = true
		if b.onExceed != nil {
			b.onExceed()
		}
		return len(data), nil
	}
	b.used += int64(len(data))
	p.buff.Write(data)
	return len(data), nil
}

func (p *pipeCollector) Bytes() []byte {
	p.budget.mu.Lock()
	defer p.budget.mu.Unlock()
	return bytes.Clone(p.buff.Bytes())
}
