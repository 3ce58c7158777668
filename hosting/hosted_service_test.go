package hosting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/inject/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	mu       *sync.Mutex
	stops    *[]string
	startErr error
	stopErr  error
	started  chan struct{}
}

func newRecording(name string, mu *sync.Mutex, stops *[]string) *recordingService {
	return &recordingService{name: name, mu: mu, stops: stops, started: make(chan struct{})}
}

func (s *recordingService) String() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) Stop(context.Context) error {
	s.mu.Lock()
	*s.stops = append(*s.stops, s.name)
	s.mu.Unlock()
	return s.stopErr
}

func TestHostedServiceManager_StartConcurrentlyStopInReverse(t *testing.T) {
	var mu sync.Mutex
	var stops []string
	a := newRecording("a", &mu, &stops)
	b := newRecording("b", &mu, &stops)
	c := newRecording("c", &mu, &stops)

	m := NewHostedServiceManager(logging.NewNop())
	m.Add(a, b, c, a)
	require.Len(t, m.Services(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := m.StartAll(ctx)
	for _, s := range []*recordingService{a, b, c} {
		select {
		case <-s.started:
		case <-time.After(time.Second):
			t.Fatalf("service %s did not start", s.name)
		}
	}

	require.NoError(t, m.StopAll(context.Background()))
	assert.Equal(t, []string{"c", "b", "a"}, stops)

	cancel()
	m.Wait()
	assert.Empty(t, errCh)
}

func TestHostedServiceManager_Errors(t *testing.T) {
	var mu sync.Mutex
	var stops []string
	failing := newRecording("failing", &mu, &stops)
	failing.startErr = errors.New("port in use")
	failing.stopErr = errors.New("close failed")

	m := NewHostedServiceManager(nil)
	m.Add(failing)

	errCh := m.StartAll(context.Background())
	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "port in use")
		assert.ErrorContains(t, err, "failing")
	case <-time.After(time.Second):
		t.Fatal("expected start error")
	}
	m.Wait()

	assert.ErrorContains(t, m.StopAll(context.Background()), "close failed")
}

func TestBackgroundService_Stop(t *testing.T) {
	s := NewBackgroundService("bg", nil)
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, <-done)
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "bg", s.String())
}

func TestBackgroundService_StopTimeout(t *testing.T) {
	s := NewBackgroundService("bg", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}

func TestTimedHostedService(t *testing.T) {
	var runs atomic.Int32
	s := NewTimedHostedService("tick", 5*time.Millisecond, func(context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	}, logging.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, <-done)
}
