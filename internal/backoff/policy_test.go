package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPolicyStartsAtMin(t *testing.T) {
	p := NewPolicy(10*time.Second, 120*time.Second)
	require.Equal(t, 10*time.Second, p.Delay())
	require.Equal(t, 0, p.Successes())
}

func TestOnFailureDoublesAndClamps(t *testing.T) {
	p := NewPolicy(10*time.Second, 120*time.Second)

	waits := []time.Duration{}
	delays := []time.Duration{}
	for i := 0; i < 6; i++ {
		waits = append(waits, p.OnFailure())
		delays = append(delays, p.Delay())
	}

	require.Equal(t, []time.Duration{
		10 * time.Second, 20 * time.Second, 40 * time.Second,
		80 * time.Second, 120 * time.Second, 120 * time.Second,
	}, waits)
	require.Equal(t, []time.Duration{
		20 * time.Second, 40 * time.Second, 80 * time.Second,
		120 * time.Second, 120 * time.Second, 120 * time.Second,
	}, delays)
}

func TestOnFailureResetsSuccesses(t *testing.T) {
	p := NewPolicy(time.Second, time.Minute)
	for i := 0; i < 10; i++ {
		p.OnSuccess()
	}
	require.Equal(t, 10, p.Successes())

	p.OnFailure()
	require.Equal(t, 0, p.Successes())
}

func TestOnSuccessHalvesAfterThreshold(t *testing.T) {
	p := NewPolicy(10*time.Second, 120*time.Second)
	for i := 0; i < 4; i++ {
		p.OnFailure()
	}
	require.Equal(t, 120*time.Second, p.Delay())

	for i := 0; i < 14; i++ {
		p.OnSuccess()
	}
	require.Equal(t, 120*time.Second, p.Delay())
	require.Equal(t, 14, p.Successes())

	p.OnSuccess()
	require.Equal(t, 60*time.Second, p.Delay())
	require.Equal(t, 0, p.Successes())
}

func TestOnSuccessClampsToMin(t *testing.T) {
	p := NewPolicy(10*time.Second, 120*time.Second)
	p.OnFailure() // 20s

	for round := 0; round < 3; round++ {
		for i := 0; i < 15; i++ {
			p.OnSuccess()
		}
	}
	require.Equal(t, 10*time.Second, p.Delay())
}

func TestInterleavedFailureRestartsCount(t *testing.T) {
	p := NewPolicy(time.Second, 8*time.Second)
	p.OnFailure()
	p.OnFailure() // 4s

	for i := 0; i < 14; i++ {
		p.OnSuccess()
	}
	p.OnFailure() // 8s, counter reset
	for i := 0; i < 14; i++ {
		p.OnSuccess()
	}
	require.Equal(t, 8*time.Second, p.Delay())

	p.OnSuccess()
	require.Equal(t, 4*time.Second, p.Delay())
}

func TestMaxBelowMin(t *testing.T) {
	p := NewPolicy(5*time.Second, time.Second)
	require.Equal(t, 5*time.Second, p.OnFailure())
	require.Equal(t, 5*time.Second, p.Delay())
}
