// Command enginedemo wires the storage engine's pieces together —
// buffer pool, extendible hash index, B+ tree, lock manager, and
// write-ahead log — and drives a small concurrent workload across
// them, the way a smoke test for a new storage engine would.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"storagecore/pkg/btree"
	"storagecore/pkg/config"
	"storagecore/pkg/hashindex"
	"storagecore/pkg/lock"
	"storagecore/pkg/logmgr"
	physpage "storagecore/pkg/page"
	"storagecore/pkg/primitives"
	"storagecore/pkg/txn"
)

func main() {
	envPath := flag.String("env", "", "optional .env file to seed configuration from")
	workers := flag.Int("workers", 8, "concurrent demo workers")
	perWorker := flag.Int("n", 200, "operations per worker")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.LogPath = filepath.Join(os.TempDir(), fmt.Sprintf("enginedemo-%s.wal", uuid.NewString()))
	log.Printf("wal: %s (buffer %s, flush every %s)", cfg.LogPath, humanize.Bytes(uint64(cfg.LogBufferSize)), cfg.LogTimeout)

	container := dig.New()
	must(container.Provide(func() *config.Config { return cfg }))
	must(container.Provide(newBufferPool))
	must(container.Provide(newHeaderPage))
	must(container.Provide(newHashIndex))
	must(container.Provide(newBTree))
	must(container.Provide(newLockManager))
	must(container.Provide(newLogManager))

	err = container.Invoke(func(
		pool *physpage.RistrettoBufferPool,
		tbl *hashindex.Table[int, string],
		tree *btree.Tree[int, string],
		locks *lock.Manager,
		wal *logmgr.Manager,
	) error {
		defer pool.Close()
		wal.RunFlushThread()
		defer wal.Close()

		return runWorkload(context.Background(), tbl, tree, locks, wal, *workers, *perWorker)
	})
	if err != nil {
		log.Fatalf("demo run: %v", err)
	}
}

func must(err error) {
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}
}

func newBufferPool(cfg *config.Config) (*physpage.RistrettoBufferPool, error) {
	return physpage.NewRistrettoBufferPool(1024)
}

func newHeaderPage(pool *physpage.RistrettoBufferPool) (*physpage.HeaderPage, error) {
	backing, err := pool.NewPage()
	if err != nil {
		return nil, err
	}
	return physpage.NewHeaderPage(backing), nil
}

func newHashIndex(cfg *config.Config) *hashindex.Table[int, string] {
	return hashindex.New[int, string](cfg.BucketSize, hashindex.IntHasher[int]())
}

func newBTree(cfg *config.Config, pool *physpage.RistrettoBufferPool, header *physpage.HeaderPage) *btree.Tree[int, string] {
	cmp := func(a, b int) int { return a - b }
	return btree.New[int, string]("enginedemo", 64, cmp, pool, header)
}

func newLockManager(cfg *config.Config) *lock.Manager {
	return lock.New(cfg.Strict2PL, cfg.WaitDieEnabled)
}

func newLogManager(cfg *config.Config) (*logmgr.Manager, error) {
	return logmgr.New(cfg.LogPath, cfg.LogBufferSize, cfg.LogTimeout)
}

// runWorkload fans out workers concurrent insert (and sometimes delete)
// transactions against both the hash index and the B+ tree, each one
// wrapped in a lock-manager-guarded, WAL-logged transaction.
func runWorkload(ctx context.Context, tbl *hashindex.Table[int, string], tree *btree.Tree[int, string], locks *lock.Manager, wal *logmgr.Manager, workers, perWorker int) error {
	g, _ := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(int64(w) + time.Now().UnixNano()))
			for i := 0; i < perWorker; i++ {
				key := w*perWorker + i
				t := txn.New()
				rid := primitives.NewRID(primitives.PageID(key), 0)

				if !locks.LockExclusive(t, rid) {
					continue // younger transaction died under Wait-Die; skip and move on
				}

				val := fmt.Sprintf("worker-%d-item-%d", w, i)
				tbl.Insert(key, val)
				if _, err := tree.Insert(key, val); err != nil {
					locks.Unlock(t, rid)
					return err
				}
				wal.AppendLogRecord(logmgr.NewInsertRecord(t.ID(), rid, []byte(val)))

				if rnd.Intn(4) == 0 {
					tree.Remove(key)
					tbl.Remove(key)
					wal.AppendLogRecord(logmgr.NewDeleteRecord(t.ID(), rid, []byte(val)))
				}

				locks.Unlock(t, rid)
				wal.AppendLogRecord(logmgr.NewCommitRecord(t.ID()))
			}
			return nil
		})
	}

	return g.Wait()
}
