package tlstream

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/polisai/secstream/pkg/config"
)

// TrustMonitor watches the CA file referenced by a ca_file trust
// policy and invokes a callback when it changes, so long-lived clients
// can rebuild connections after a CA rotation. It is a change
// notification mechanism only: trust material is still resolved fresh
// on every connection attempt.
type TrustMonitor struct {
	path     string
	callback func()
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTrustMonitor creates a monitor for the given policy. Only ca_file
// policies reference a filesystem source; other modes are rejected.
func NewTrustMonitor(policy config.TrustPolicy, callback func(), logger *slog.Logger) (*TrustMonitor, error) {
	if policy.EffectiveMode() != config.TrustModeCAFile {
		return nil, NewTLSError(ErrorTypeConfigValidation,
			"trust monitoring requires a ca_file trust policy").
			WithContext("trust_mode", string(policy.EffectiveMode()))
	}
	if callback == nil {
		return nil, NewTLSError(ErrorTypeConfigValidation, "trust monitor callback cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TrustMonitor{
		path:     filepath.Clean(policy.CAFile),
		callback: callback,
		logger:   logger.With("component", "tlstream"),
	}, nil
}

// Start begins watching the CA file. The parent directory is watched
// rather than the file itself so atomic replacement (write to temp,
// rename over) is observed.
func (m *TrustMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return NewTLSErrorWithCause(ErrorTypeFileAccess, "failed to create file watcher", err)
	}

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return NewFileReadError(m.path, err)
	}

	m.watcher = watcher
	m.stopChan = make(chan struct{})
	m.running = true

	m.logger.Info("Started watching CA file", "file_path", m.path)

	m.wg.Add(1)
	go m.watchLoop(ctx)

	return nil
}

// Stop stops watching. It is safe to call multiple times.
func (m *TrustMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopChan)
	watcher := m.watcher
	m.mu.Unlock()

	err := watcher.Close()
	m.wg.Wait()

	m.logger.Info("Stopped watching CA file", "file_path", m.path)
	return err
}

func (m *TrustMonitor) watchLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !m.matches(event) {
				continue
			}
			m.logger.Info("CA file changed",
				"file_path", m.path,
				"op", event.Op.String())
			m.callback()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("CA file watcher error",
				"file_path", m.path,
				"error", err)

		case <-m.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (m *TrustMonitor) matches(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Clean(event.Name) == m.path
}
