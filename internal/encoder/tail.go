package encoder

import (
	"sync"

	"github.com/smallnest/ringbuffer"
)

// defaultTailSize bounds how much ffmpeg stderr is kept per process.
const defaultTailSize = 4096

// tailBuffer keeps the most recent bytes written to it. ffmpeg is chatty on
// stderr for the whole capture, so only the tail is worth reporting.
type tailBuffer struct {
	mu sync.Mutex
	rb *ringbuffer.RingBuffer
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = defaultTailSize
	}
	return &tailBuffer{rb: ringbuffer.New(size)}
}

// Write never fails; older bytes are discarded to make room.
func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if c := t.rb.Capacity(); len(p) > c {
		p = p[len(p)-c:]
	}
	if over := len(p) - t.rb.Free(); over > 0 {
		discard := make([]byte, over)
		_, _ = t.rb.Read(discard)
	}
	_, _ = t.rb.Write(p)
	return n, nil
}

// String returns the buffered tail without consuming it.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.rb.Length()
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	k, _ := t.rb.Read(buf)
	_, _ = t.rb.Write(buf[:k])
	return string(buf[:k])
}
