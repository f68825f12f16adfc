package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStartup(maxAttempts int) (*Startup, *[]time.Duration) {
	s := NewStartup(ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}), maxAttempts)
	var waits []time.Duration
	s.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func recorder(log *[]string, name string) *Dependency {
	return &Dependency{
		Name:    name,
		StartFn: func(context.Context) error { *log = append(*log, "start "+name); return nil },
		StopFn:  func(context.Context) error { *log = append(*log, "stop "+name); return nil },
	}
}

func TestStartup_Order(t *testing.T) {
	s, _ := newTestStartup(1)
	var log []string

	http := recorder(&log, "http")
	http.Requires = []string{"services"}
	services := recorder(&log, "services")
	services.Requires = []string{"postgres"}

	s.AddDependency(http)
	s.AddDependency(services)
	s.AddDependency(recorder(&log, "postgres"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start postgres", "start services", "start http"}, log)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	log = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop http", "stop services", "stop postgres"}, log)
	assert.Equal(t, StartupStatusStopped, s.Status("postgres"))
}

func TestStartup_RetriesWithBackoff(t *testing.T) {
	s, waits := newTestStartup(4)
	calls := 0
	s.AddDependency(&Dependency{
		Name: "postgres",
		StartFn: func(context.Context) error {
			calls++
			if calls < 4 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 2 * time.Second}, *waits)
}

func TestStartup_GivesUp(t *testing.T) {
	s, _ := newTestStartup(2)
	s.AddDependency(&Dependency{
		Name:    "redis",
		StartFn: func(context.Context) error { return errors.New("no route to host") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "no route to host")
	assert.Equal(t, StartupStatusFailed, s.Status("redis"))
}

func TestStartup_UnknownAndCyclicDependencies(t *testing.T) {
	t.Run("unknown", func(t *testing.T) {
		s, _ := newTestStartup(1)
		s.AddDependency(&Dependency{Name: "http", Requires: []string{"services"}})
		assert.ErrorContains(t, s.Start(context.Background()), "'services' is not registered")
	})

	t.Run("cycle", func(t *testing.T) {
		s, _ := newTestStartup(1)
		s.AddDependency(&Dependency{Name: "a", Requires: []string{"b"}})
		s.AddDependency(&Dependency{Name: "b", Requires: []string{"a"}})
		assert.ErrorContains(t, s.Start(context.Background()), "cycle")
	})
}

func TestStartup_StopAttemptsEveryDependency(t *testing.T) {
	s, _ := newTestStartup(1)
	var log []string
	failing := recorder(&log, "kafka")
	failing.StopFn = func(context.Context) error { return errors.New("flush failed") }

	s.AddDependency(recorder(&log, "postgres"))
	s.AddDependency(failing)
	require.NoError(t, s.Start(context.Background()))

	log = nil
	assert.EqualError(t, s.Stop(context.Background()), "flush failed")
	assert.Equal(t, []string{"stop postgres"}, log)
}
