package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type memoryLetters struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (m *memoryLetters) PushDeadLetter(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *memoryLetters) letters(t *testing.T) []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeadLetter, 0, len(m.payloads))
	for _, p := range m.payloads {
		var l DeadLetter
		require.NoError(t, json.Unmarshal(p, &l))
		out = append(out, l)
	}
	return out
}

type recordingEvents struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingEvents) Publish(ctx context.Context, name string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

func newTestRunner(workers, queue int, timeout time.Duration) (*Runner, *memoryLetters, *recordingEvents) {
	letters := &memoryLetters{}
	events := &recordingEvents{}
	sink := NewDeadLetterSink(letters, events, quietLogger())
	return NewRunner(workers, queue, timeout, sink, quietLogger()), letters, events
}

func TestRunnerRunsTasks(t *testing.T) {
	runner, letters, _ := newTestRunner(3, 10, time.Second)
	runner.Start(context.Background())

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, runner.Submit(Task{
			Name: "message",
			Run: func(ctx context.Context) error {
				done.Add(1)
				return nil
			},
		}))
	}
	runner.Stop()

	assert.Equal(t, int32(10), done.Load())
	assert.Empty(t, letters.letters(t))
	assert.ErrorIs(t, runner.Submit(Task{Name: "late"}), ErrRunnerStopped)
}

func TestRunnerTaskErrorIsNotDeadLettered(t *testing.T) {
	runner, letters, _ := newTestRunner(1, 1, time.Second)
	runner.Start(context.Background())
	require.NoError(t, runner.Submit(Task{
		Name: "message",
		Run:  func(ctx context.Context) error { return errors.New("extraction failed") },
	}))
	runner.Stop()
	assert.Empty(t, letters.letters(t))
}

func TestRunnerTimeout(t *testing.T) {
	runner, letters, events := newTestRunner(1, 1, 20*time.Millisecond)
	runner.Start(context.Background())

	failed := make(chan FailureKind, 1)
	require.NoError(t, runner.Submit(Task{
		Name: "message",
		Key:  "whatsapp:+919876543210",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		OnFailure: func(ctx context.Context, kind FailureKind) {
			assert.NoError(t, ctx.Err())
			failed <- kind
		},
	}))
	runner.Stop()

	assert.Equal(t, FailureTimeout, <-failed)
	got := letters.letters(t)
	require.Len(t, got, 1)
	assert.Equal(t, "whatsapp:+919876543210", got[0].Key)
	assert.Equal(t, FailureTimeout, got[0].Kind)
	assert.Equal(t, []string{EventTaskFailed}, events.names)
}

func TestRunnerRecoversPanics(t *testing.T) {
	runner, letters, _ := newTestRunner(1, 2, time.Second)
	runner.Start(context.Background())

	var after atomic.Bool
	require.NoError(t, runner.Submit(Task{
		Name: "message",
		Run:  func(ctx context.Context) error { panic("nil seller") },
	}))
	require.NoError(t, runner.Submit(Task{
		Name: "message",
		Run: func(ctx context.Context) error {
			after.Store(true)
			return nil
		},
	}))
	runner.Stop()

	got := letters.letters(t)
	require.Len(t, got, 1)
	assert.Equal(t, FailurePanic, got[0].Kind)
	assert.Contains(t, got[0].Error, "nil seller")
	assert.True(t, after.Load())
}

func TestRunnerQueueFull(t *testing.T) {
	runner, letters, _ := newTestRunner(1, 1, time.Second)

	// not started, so the single slot stays taken
	require.NoError(t, runner.Submit(Task{Name: "first", Run: func(ctx context.Context) error { return nil }}))

	var kind FailureKind
	err := runner.Submit(Task{
		Name:      "second",
		Run:       func(ctx context.Context) error { return nil },
		OnFailure: func(ctx context.Context, k FailureKind) { kind = k },
	})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.True(t, ierr.Is(err, ierr.ErrSystem))
	assert.Equal(t, FailureQueueFull, kind)
	require.Len(t, letters.letters(t), 1)

	runner.Start(context.Background())
	runner.Stop()
}

type fakeSender struct {
	events []any
	err    error
}

func (f *fakeSender) Send(ctx context.Context, evt any) (string, error) {
	f.events = append(f.events, evt)
	return "01HEVENT", f.err
}

func TestInngestClientPublish(t *testing.T) {
	sender := &fakeSender{}
	client := &InngestClient{client: sender, logger: quietLogger()}

	require.NoError(t, client.Publish(context.Background(), "gutinvoice/invoice.issued", map[string]any{"invoice_number": "TEJ001-022026"}))
	require.Len(t, sender.events, 1)

	sender.err = errors.New("401 unauthorized")
	err := client.Publish(context.Background(), "gutinvoice/invoice.issued", nil)
	assert.True(t, ierr.Is(err, ierr.ErrDependency))
}

func TestNewInngestClientRequiresKeyOutsideDev(t *testing.T) {
	cfg := &config.Config{Inngest: config.InngestConfig{AppID: "gutinvoice"}}
	_, err := NewInngestClient(cfg, quietLogger())
	assert.Error(t, err)
}
