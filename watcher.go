package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// InputsWatcher recomputes the breakdown whenever an inputs file changes.
// It watches the parent directory so editors that save by rename are seen.
type InputsWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	calc        *Calculator
	path        string
	onResult    func(TaxpayerInputs, DeductionResult)
	logger      *zap.Logger
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewInputsWatcher creates a watcher for path. onResult is called from the
// watcher goroutine after each successful recompute.
func NewInputsWatcher(path string, calc *Calculator, onResult func(TaxpayerInputs, DeductionResult), logger *zap.Logger) (*InputsWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InputsWatcher{
		watcher:     watcher,
		calc:        calc,
		path:        absPath,
		onResult:    onResult,
		logger:      logger,
		debounceDur: 200 * time.Millisecond, // Editors often write twice per save
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start computes once from the current file and then watches for changes.
// It does not block.
func (iw *InputsWatcher) Start(ctx context.Context) error {
	iw.mu.Lock()
	if iw.running {
		iw.mu.Unlock()
		return nil
	}
	iw.running = true
	iw.mu.Unlock()

	if err := iw.watcher.Add(filepath.Dir(iw.path)); err != nil {
		iw.mu.Lock()
		iw.running = false
		iw.mu.Unlock()
		return fmt.Errorf("watch %s: %w", filepath.Dir(iw.path), err)
	}
	iw.logger.Info("watching inputs", zap.String("path", iw.path))

	iw.recompute()
	go iw.run(ctx)
	return nil
}

// Stop stops the watcher, waits for the event loop to exit and releases
// the underlying file watcher. It is safe to call on a watcher that never started.
func (iw *InputsWatcher) Stop() {
	iw.mu.Lock()
	wasRunning := iw.running
	iw.running = false
	iw.mu.Unlock()

	if wasRunning {
		close(iw.stopCh)
		<-iw.doneCh
	}

	if err := iw.watcher.Close(); err != nil {
		iw.logger.Error("error closing watcher", zap.Error(err))
	}
}

// Done is closed when the event loop has exited
func (iw *InputsWatcher) Done() <-chan struct{} {
	return iw.doneCh
}

func (iw *InputsWatcher) run(ctx context.Context) {
	defer close(iw.doneCh)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case <-iw.stopCh:
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != iw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			iw.logger.Debug("inputs changed", zap.String("op", event.Op.String()))
			debounce = time.After(iw.debounceDur)

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			iw.logger.Error("watcher error", zap.Error(err))

		case <-debounce:
			debounce = nil
			iw.recompute()
		}
	}
}

func (iw *InputsWatcher) recompute() {
	inputs, err := LoadInputs(iw.path)
	if err != nil {
		// Half-written files are common mid-save; the next event will retry
		iw.logger.Warn("cannot read inputs", zap.Error(err))
		return
	}
	result := iw.calc.Compute(inputs)
	if iw.onResult != nil {
		iw.onResult(inputs, result)
	}
}
