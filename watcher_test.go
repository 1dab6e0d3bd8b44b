package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func waitForResult(t *testing.T, results <-chan DeductionResult, salary string) DeductionResult {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r := <-results:
			if r.GrossIncome.Equal(d(salary)) {
				return r
			}
		case <-timeout:
			t.Fatalf("no result for salary %s", salary)
		}
	}
}

func newTestWatcher(t *testing.T, path string) (*InputsWatcher, <-chan DeductionResult) {
	t.Helper()
	results := make(chan DeductionResult, 16)
	calc := NewCalculator(mustDefaultConfig(t))
	watcher, err := NewInputsWatcher(path, calc, func(_ TaxpayerInputs, r DeductionResult) {
		select {
		case results <- r:
		default:
		}
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return watcher, results
}

func TestInputsWatcher_RecomputesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("salary: 40000\n"), 0644))

	watcher, results := newTestWatcher(t, path)
	require.NoError(t, watcher.Start(context.Background()))

	first := waitForResult(t, results, "40000")
	assert.True(t, first.TaxableIncome.Equal(d("40000")))

	require.NoError(t, os.WriteFile(path, []byte("salary: 65000\nemployee_pension_percent: 10\n"), 0644))
	second := waitForResult(t, results, "65000")
	assert.True(t, second.EmployeePension.Equal(d("6500")))

	watcher.Stop()
	select {
	case <-watcher.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}

func TestInputsWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("salary: 30000\n"), 0644))

	watcher, results := newTestWatcher(t, path)
	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	waitForResult(t, results, "30000")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("salary: 99999\n"), 0644))
	select {
	case r := <-results:
		t.Fatalf("unexpected recompute with gross %s", r.GrossIncome)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestInputsWatcher_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "inputs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("salary: 30000\n"), 0644))

	watcher, _ := newTestWatcher(t, path)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, watcher.Start(ctx))

	cancel()
	select {
	case <-watcher.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	watcher.Stop()
}

func TestInputsWatcher_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	watcher, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "inputs.yaml"))
	watcher.Stop()
}

func TestInputsWatcher_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	watcher, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "nope", "inputs.yaml"))
	assert.Error(t, watcher.Start(context.Background()))
	watcher.Stop()
}
