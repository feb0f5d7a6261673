package generate

import (
	"sync"

	"github.com/sells-group/formfill-cli/internal/model"
)

// usageCounter accumulates token usage across concurrent calls.
type usageCounter struct {
	mu    sync.Mutex
	total model.TokenUsage
}

func (u *usageCounter) add(in, out int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total.Add(model.TokenUsage{InputTokens: in, OutputTokens: out, Calls: 1})
}

func (u *usageCounter) snapshot() model.TokenUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.total
}
