package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charlesng35/sessiongate/internal/directory"
	"github.com/charlesng35/sessiongate/internal/models"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{current: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

var errWriteRejected = errors.New("write rejected")

// flakyDirectory wraps a Directory and fails selected calls.
type flakyDirectory struct {
	directory.Directory
	failWrites   bool
	failRecord   bool
	failPartners bool
	failFind     bool
	writes       int
}

func (d *flakyDirectory) FindByUsername(ctx context.Context, username string) ([]*models.User, error) {
	if d.failFind {
		return nil, errors.New("directory offline")
	}
	return d.Directory.FindByUsername(ctx, username)
}

func (d *flakyDirectory) WriteLockState(ctx context.Context, state directory.LockState) error {
	d.writes++
	if d.failWrites {
		return errWriteRejected
	}
	return d.Directory.WriteLockState(ctx, state)
}

func (d *flakyDirectory) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	if d.failRecord {
		return errWriteRejected
	}
	return d.Directory.RecordLogin(ctx, userID, at)
}

func (d *flakyDirectory) HasBusinessPartner(ctx context.Context, userID string) (bool, error) {
	if d.failPartners {
		return false, errors.New("partner table missing")
	}
	return d.Directory.HasBusinessPartner(ctx, userID)
}

func (d *flakyDirectory) Transaction(ctx context.Context, fn func(directory.Directory) error) error {
	return d.Directory.Transaction(ctx, func(tx directory.Directory) error {
		inner := *d
		inner.Directory = tx
		err := fn(&inner)
		d.writes = inner.writes
		return err
	})
}
