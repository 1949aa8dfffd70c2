package encoder

import "sync"

// Process is a spawned encoder that runs until it is terminated or exits on
// its own.
type Process struct {
	Pid     int
	Purpose Purpose
	Output  string

	done chan struct{}
	once sync.Once
	err  error
	tail *tailBuffer
}

// NewProcess returns a Process for pid together with the function that
// records its exit. Runners call finish exactly once when the process is
// reaped; later calls are ignored.
func NewProcess(pid int, purpose Purpose, output string) (*Process, func(error)) {
	p := &Process{
		Pid:     pid,
		Purpose: purpose,
		Output:  output,
		done:    make(chan struct{}),
		tail:    newTailBuffer(defaultTailSize),
	}
	finish := func(err error) {
		p.once.Do(func() {
			p.err = err
			close(p.done)
		})
	}
	return p, finish
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has already been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// StderrTail returns the last bytes the process wrote to stderr.
func (p *Process) StderrTail() string {
	return p.tail.String()
}
