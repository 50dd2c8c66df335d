package privacy

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"dataassist/internal/logging"
)

// Blocklist is the user-managed set of blocked sender addresses, backed
// by a plain text file (one address per line, # comments allowed). The
// file is watched for changes so edits take effect between checks
// without a restart.
type Blocklist struct {
	mu      sync.RWMutex
	path    string
	entries map[string]struct{}
	watcher *fsnotify.Watcher
}

// NewBlocklist loads the blocklist file and starts watching it. A
// missing file is an empty blocklist, not an error.
func NewBlocklist(path string) (*Blocklist, error) {
	b := &Blocklist{
		path:    path,
		entries: make(map[string]struct{}),
	}
	if err := b.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Watching is best-effort; the list still works without it.
		logging.Get(logging.CategoryPrivacy).Warn("blocklist watcher unavailable: %v", err)
		return b, nil
	}
	b.watcher = watcher
	if err := watcher.Add(path); err != nil {
		logging.PrivacyDebug("blocklist not watchable yet: %v", err)
	}
	go b.watch()
	return b, nil
}

func (b *Blocklist) watch() {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := b.reload(); err != nil {
					logging.Get(logging.CategoryPrivacy).Warn("blocklist reload failed: %v", err)
				} else {
					logging.Privacy("blocklist reloaded (%d entries)", b.Len())
				}
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryPrivacy).Warn("blocklist watch error: %v", err)
		}
	}
}

func (b *Blocklist) reload() error {
	entries := make(map[string]struct{})

	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			b.mu.Lock()
			b.entries = entries
			b.mu.Unlock()
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()
	return nil
}

// Contains reports whether the (normalized) sender address is blocked.
func (b *Blocklist) Contains(address string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// Add inserts an address into the in-memory list (does not rewrite the
// file; callers editing the file rely on the watcher instead).
func (b *Blocklist) Add(address string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[strings.ToLower(strings.TrimSpace(address))] = struct{}{}
}

// Len returns the number of blocked addresses.
func (b *Blocklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close stops the file watcher.
func (b *Blocklist) Close() error {
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}
