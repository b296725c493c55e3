package features

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"talentrank/internal/errors"
)

// VocabularyWatcher watches a vocabulary file and hot-swaps the
// extractor's vocabulary when it changes. Events are debounced so editors
// that write in several steps trigger a single reload.
type VocabularyWatcher struct {
	mu sync.Mutex

	path      string
	extractor *Extractor

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	lastModTime   time.Time

	stopChan chan struct{}
	logger   *errors.Logger
	running  bool
}

// NewVocabularyWatcher creates a watcher for path that reloads into
// extractor on change.
func NewVocabularyWatcher(path string, extractor *Extractor, debounceDelay time.Duration, logger *errors.Logger) *VocabularyWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &VocabularyWatcher{
		path:          path,
		extractor:     extractor,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start loads the vocabulary once and begins watching for changes.
func (vw *VocabularyWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if vw.running {
		return fmt.Errorf("vocabulary watcher is already running")
	}

	if err := vw.reload(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	vw.fsWatcher = watcher

	// Watch the directory too so atomic writes (rename over the file)
	// are caught.
	if err := watcher.Add(vw.path); err != nil && !os.IsNotExist(err) {
		vw.cleanupWatcher()
		return fmt.Errorf("failed to watch vocabulary file %s: %w", vw.path, err)
	}
	if err := watcher.Add(filepath.Dir(vw.path)); err != nil {
		if vw.logger != nil {
			vw.logger.Warn("Failed to watch vocabulary directory",
				"directory", filepath.Dir(vw.path), "error", err)
		}
	}

	if stat, err := os.Stat(vw.path); err == nil {
		vw.lastModTime = stat.ModTime()
	}

	vw.running = true
	go vw.watchLoop()

	if vw.logger != nil {
		vw.logger.Info("Vocabulary file watcher started",
			"file", vw.path,
			"debounce_delay", vw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher.
func (vw *VocabularyWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if !vw.running {
		return nil
	}

	close(vw.stopChan)
	if vw.debounceTimer != nil {
		vw.debounceTimer.Stop()
	}
	if vw.fsWatcher != nil {
		if err := vw.fsWatcher.Close(); err != nil {
			if vw.logger != nil {
				vw.logger.LogError(err, "Failed to close vocabulary file watcher")
			}
			return err
		}
	}

	vw.running = false
	if vw.logger != nil {
		vw.logger.Info("Vocabulary file watcher stopped")
	}
	return nil
}

func (vw *VocabularyWatcher) cleanupWatcher() {
	if vw.fsWatcher != nil {
		if closeErr := vw.fsWatcher.Close(); closeErr != nil && vw.logger != nil {
			vw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
	}
}

func (vw *VocabularyWatcher) watchLoop() {
	for {
		select {
		case <-vw.stopChan:
			return
		case event, ok := <-vw.fsWatcher.Events:
			if !ok {
				return
			}
			vw.handleEvent(event)
		case err, ok := <-vw.fsWatcher.Errors:
			if !ok {
				return
			}
			if vw.logger != nil {
				vw.logger.LogError(err, "Vocabulary file watcher error")
			}
		}
	}
}

func (vw *VocabularyWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(vw.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()

	if !vw.hasFileChanged() {
		return
	}

	if vw.debounceTimer != nil {
		vw.debounceTimer.Stop()
	}
	vw.debounceTimer = time.AfterFunc(vw.debounceDelay, func() {
		vw.mu.Lock()
		defer vw.mu.Unlock()
		if err := vw.reload(); err != nil && vw.logger != nil {
			vw.logger.LogError(err, "Vocabulary reload failed, keeping previous vocabulary",
				"file", vw.path)
		}
	})
}

// caller must hold vw.mu
func (vw *VocabularyWatcher) hasFileChanged() bool {
	stat, err := os.Stat(vw.path)
	if err != nil {
		return false
	}
	if stat.ModTime().After(vw.lastModTime) {
		vw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

// caller must hold vw.mu
func (vw *VocabularyWatcher) reload() error {
	vocab, err := LoadVocabulary(vw.path)
	if err != nil {
		return err
	}
	vw.extractor.SetVocabulary(vocab)
	if vw.logger != nil {
		vw.logger.Info("Vocabulary loaded",
			"file", vw.path,
			"skills", vocab.SkillCount())
	}
	return nil
}
