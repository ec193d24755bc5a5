package pagesort

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/table"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
)

// tempRuns tracks the temporary tables of one Sort call. Every table created
// through it is dropped by dropAll unless it was dropped earlier.
type tempRuns[E any] struct {
	store   table.Store[E]
	prefix  string
	logger  *log.Logger
	workers int
	live    map[string]table.Table[E]
	created int
	failed  int
}

func newTempRuns[E any](store table.Store[E], config *Config) *tempRuns[E] {
	return &tempRuns[E]{
		store:   store,
		prefix:  config.TempNamePrefix + newSortID() + "_",
		logger:  config.Logger,
		workers: config.CleanupWorkers,
		live:    make(map[string]table.Table[E]),
	}
}

// newSortID returns a random identifier scoping the temporary names of one sort.
func newSortID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b[:])
}

// name returns the table name for run index of a merge pass; pass 0 is run generation.
func (t *tempRuns[E]) name(pass, index int) string {
	return fmt.Sprintf("%sp%d_r%d", t.prefix, pass, index)
}

func (t *tempRuns[E]) create(name string, pageCapacity int) (table.Table[E], error) {
	tbl, err := t.store.Create(name, pageCapacity)
	if err != nil {
		return nil, NewDiskError(err, "create temporary run", name)
	}
	t.live[name] = tbl
	t.created++
	return tbl, nil
}

// drop deletes one temporary table. Failures are logged, not returned.
func (t *tempRuns[E]) drop(tbl table.Table[E]) {
	delete(t.live, tbl.Name())
	if err := tbl.Drop(); err != nil {
		t.failed++
		t.logger.Warn().Err(err).Str("table", tbl.Name()).Msg("failed to drop temporary run")
	}
}

// dropAll deletes every remaining temporary table concurrently and returns
// the combined drop errors, each of which has already been logged.
func (t *tempRuns[E]) dropAll() error {
	var g errgroup.Group
	g.SetLimit(t.workers)

	var mu sync.Mutex
	var combined error
	for name, tbl := range t.live {
		delete(t.live, name)
		g.Go(func() error {
			err := tbl.Drop()
			if err != nil {
				t.logger.Warn().Err(err).Str("table", name).Msg("failed to drop temporary run")
				mu.Lock()
				t.failed++
				combined = errors.CombineErrors(combined, err)
				mu.Unlock()
			}
			return err
		})
	}
	_ = g.Wait()
	return combined
}
