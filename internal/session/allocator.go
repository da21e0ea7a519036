// Package session implements the two-digit temp-directory slot scheme
// and persisted-file layout: a mutex-guarded scan for the first free
// "00".."99" prefix within a session's working directory, and the naming
// scheme for every file a session produces. Slots are claimed against
// the filesystem rather than held in memory, so runs from separate
// processes sharing one temp root cannot collide.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoSlotsAvailable is returned when all 100 two-digit prefixes in a
// session directory are already taken.
var ErrNoSlotsAvailable = errors.New("no free session slot (00-99 exhausted)")

const maxSlots = 100

// Allocator finds and reserves a two-digit numeric prefix inside one
// session directory, guarding the scan with a mutex so concurrent
// sessions targeting the same temp root don't race on the same slot.
type Allocator struct {
	mu  sync.Mutex
	dir string
}

// NewAllocator returns an Allocator scoped to dir, creating it if absent.
func NewAllocator(dir string) (*Allocator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir %s: %w", dir, err)
	}
	return &Allocator{dir: dir}, nil
}

// Reserve scans "00".."99" for the first prefix whose "<prefix>.cap" does
// not exist yet and claims it by creating that file immediately, so a concurrent
// Reserve call on the same directory can't observe the same free slot.
func (a *Allocator) Reserve() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for n := 0; n < maxSlots; n++ {
		prefix := fmt.Sprintf("%02d", n)
		marker := filepath.Join(a.dir, prefix+".cap")
		f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("reserve slot %s: %w", prefix, err)
		}
		f.Close()
		return prefix, nil
	}
	return "", fmt.Errorf("%s: %w", a.dir, ErrNoSlotsAvailable)
}
