package spawn

import (
	"bytes"
	"sync"

	"github.com/goccy/go-json"
)

func encodeForTest(t Task) (string, error) {
	raw, err := json.Marshal(t)
	return string(raw), err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
