package bridge_test

import (
	"sync"
	"testing"

	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestBridge_EmitInRegistrationOrder(t *testing.T) {
	b := bridge.New()

	var order []int
	b.On("topic", func(bridge.TaskResult) { order = append(order, 1) })
	b.On("topic", func(bridge.TaskResult) { order = append(order, 2) })
	b.On("topic", func(bridge.TaskResult) { order = append(order, 3) })

	b.Emit("topic", bridge.TaskResult{})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBridge_Off(t *testing.T) {
	b := bridge.New()

	calls := 0
	sub := b.On("topic", func(bridge.TaskResult) { calls++ })
	b.Emit("topic", bridge.TaskResult{})
	b.Off(sub)
	b.Emit("topic", bridge.TaskResult{})

	assert.Equal(t, 1, calls)

	// Removing twice is harmless.
	b.Off(sub)
}

func TestBridge_EmitWithNoHandlers(t *testing.T) {
	b := bridge.New()
	assert.NotPanics(t, func() {
		b.Emit("websummarizer:result", bridge.TaskResult{NodeID: "gone"})
	})
}

func TestBridge_TopicsAreIsolated(t *testing.T) {
	b := bridge.New()

	var got string
	b.On("a:result", func(r bridge.TaskResult) { got = r.NodeID })
	b.Emit("b:result", bridge.TaskResult{NodeID: "nope"})
	assert.Empty(t, got)

	b.Emit("a:result", bridge.TaskResult{NodeID: "yes"})
	assert.Equal(t, "yes", got)
}

func TestBridge_ConcurrentEmitAndSubscribe(t *testing.T) {
	b := bridge.New()

	var mu sync.Mutex
	count := 0
	b.On("t", func(bridge.TaskResult) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Emit("t", bridge.TaskResult{})
		}()
		go func() {
			defer wg.Done()
			sub := b.On("t", func(bridge.TaskResult) {})
			b.Off(sub)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 16, count)
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "websummarizer:result", bridge.ResultTopic(domain.NodeTypeWebSummarizer))
	assert.Equal(t, "websummarizer:error", bridge.ErrorTopic(domain.NodeTypeWebSummarizer))
	assert.Equal(t, "agentcall:result", bridge.ResultTopic(domain.NodeTypeAgentCall))
}
