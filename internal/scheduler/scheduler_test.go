package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{}
}

func (f *fakeRunner) Run(_ context.Context) (*model.Report, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Report{RunID: "r1", Symbol: "SPY"}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendReport(_ context.Context, rep *model.Report, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, "report "+rep.Symbol)
	return nil
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func TestScheduler_RunTaskStoresReport(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), &fakeRunner{}, sender)

	assert.Equal(t, "No analysis run has completed yet.", s.HandleCommand("/report"))
	s.runTask()

	require.NotNil(t, s.LastReport())
	assert.Equal(t, "r1", s.LastReport().RunID)
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "SPY")
	assert.Contains(t, s.HandleCommand(" /REPORT "), "IV vs HV accuracy")
}

func TestScheduler_RunFailureNotifies(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), &fakeRunner{err: errors.New("no prices")}, sender)
	s.runTask()

	assert.Nil(t, s.LastReport())
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "no prices")
}

func TestScheduler_RunsDoNotOverlap(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := NewScheduler(context.Background(), runner, nil)

	type result struct {
		rep    *model.Report
		shared bool
	}
	results := make(chan result, 2)
	run := func() {
		rep, shared, err := s.RunNow()
		assert.NoError(t, err)
		results <- result{rep, shared}
	}

	go run()
	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.calls == 1
	}, time.Second, 5*time.Millisecond)
	go run()
	time.Sleep(50 * time.Millisecond)

	close(runner.block)
	a, b := <-results, <-results
	assert.Same(t, a.rep, b.rep)
	assert.True(t, a.shared && b.shared)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 1, runner.calls)
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil)
	assert.NoError(t, s.Register("0 0 6 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))
	assert.Contains(t, s.HandleCommand("/help"), "/run")
}
