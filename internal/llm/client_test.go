package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callmeout/callmeout/internal/config"
	"github.com/callmeout/callmeout/internal/loggy"
)

type fakeBackend struct {
	mu          sync.Mutex
	response    string
	err         error
	delay       time.Duration
	inFlight    int
	maxInFlight int
	calls       int
	closed      int

	gotMessages string
	gotOptions  string
	gotBufSize  int
}

func (f *fakeBackend) Complete(messagesJSON, optionsJSON string, bufSize int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.gotMessages = messagesJSON
	f.gotOptions = optionsJSON
	f.gotBufSize = bufSize
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.response, f.err
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func testConfig() config.CactusConfig {
	return config.CactusConfig{
		ContextSize:        4096,
		MaxTokens:          256,
		Temperature:        0.1,
		ResponseBufferSize: 8192,
	}
}

func TestCompleteSuccess(t *testing.T) {
	backend := &fakeBackend{response: `{"success":true,"response":"model says hi"}`}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	text, err := client.Complete(context.Background(), "be brief", "say hi")
	require.NoError(t, err)
	assert.Equal(t, "model says hi", text)

	var messages []Message
	require.NoError(t, json.Unmarshal([]byte(backend.gotMessages), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "be brief", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "say hi", messages[1].Content)

	var options map[string]any
	require.NoError(t, json.Unmarshal([]byte(backend.gotOptions), &options))
	assert.Equal(t, float64(256), options["max_tokens"])
	assert.Equal(t, 0.1, options["temperature"])
	assert.Equal(t, float64(4096), options["context_size"])
	assert.Equal(t, 8192, backend.gotBufSize)
}

func TestCompleteOmitsUnsetContextSize(t *testing.T) {
	backend := &fakeBackend{response: `{"success":true,"response":"ok"}`}
	cfg := testConfig()
	cfg.ContextSize = 0
	client := NewClient(backend, cfg, loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)

	var options map[string]any
	require.NoError(t, json.Unmarshal([]byte(backend.gotOptions), &options))
	assert.NotContains(t, options, "context_size")
}

func TestCompleteBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("cactus_complete failed (ret=-1): out of memory")}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestCompleteFailureEnvelope(t *testing.T) {
	backend := &fakeBackend{response: `{"success":false,"error":"context window exceeded"}`}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context window exceeded")
}

func TestCompleteFailureEnvelopeNoError(t *testing.T) {
	backend := &fakeBackend{response: `{"success":false}`}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown error")
}

func TestCompleteMissingResponseField(t *testing.T) {
	backend := &fakeBackend{response: `{"success":true}`}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'response' field")
}

func TestCompleteMalformedEnvelope(t *testing.T) {
	backend := &fakeBackend{response: "totally not json"}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	_, err := client.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing backend response")
}

func TestCompleteSerializesConcurrentCallers(t *testing.T) {
	backend := &fakeBackend{
		response: `{"success":true,"response":"ok"}`,
		delay:    20 * time.Millisecond,
	}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Complete(context.Background(), "sys", "user")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, backend.calls)
	assert.Equal(t, 1, backend.maxInFlight, "backend must never see overlapping calls")
}

func TestCloseIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	client := NewClient(backend, testConfig(), loggy.NewNoopLogger())

	client.Close()
	client.Close()
	assert.Equal(t, 1, backend.closed)
}
