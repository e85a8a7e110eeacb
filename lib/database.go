package lib

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/triedb"

	"github.com/horizenlabs/evmbridge/handles"
)

// Database is a key-value store together with the trie and state caches on
// top of it.
type Database struct {
	storage  ethdb.Database
	triedb   *triedb.Database
	database state.Database

	// mu guards closed and the registration of states
	mu     sync.Mutex
	closed bool
	// handles of states opened on this database
	states mapset.Set[int]
}

type DatabaseParams struct {
	DatabaseHandle int `json:"databaseHandle"`
}

type LevelDBParams struct {
	Path string `json:"path"`
}

func (s *Service) open(storage ethdb.Database) int {
	tdb := triedb.NewDatabase(storage, triedb.HashDefaults)
	db := &Database{
		storage:  storage,
		triedb:   tdb,
		database: state.NewDatabase(tdb, nil),
		states:   mapset.NewSet[int](),
	}
	return s.databases.Add(db)
}

// DatabaseOpenMemoryDB opens a new, empty in-memory database.
func (s *Service) DatabaseOpenMemoryDB() int {
	log.Info("initializing memorydb")
	return s.open(rawdb.NewMemoryDatabase())
}

// DatabaseOpenLevelDB opens or creates a LevelDB database at the given path.
func (s *Service) DatabaseOpenLevelDB(params LevelDBParams) (int, error) {
	if params.Path == "" {
		return 0, errors.New("database path is empty")
	}
	log.Info("initializing leveldb", "path", params.Path)
	cfg := s.cfg.Database
	kvdb, err := leveldb.New(params.Path, cfg.Cache, cfg.Handles, cfg.Namespace, false)
	if err != nil {
		log.Error("failed to initialize database", "path", params.Path, "err", err)
		return 0, err
	}
	return s.open(rawdb.NewDatabase(kvdb)), nil
}

// DatabaseClose closes the database and releases all states opened on it.
func (s *Service) DatabaseClose(params DatabaseParams) error {
	db, ok := s.databases.Remove(params.DatabaseHandle)
	if !ok {
		return fmt.Errorf("%w: %d", handles.ErrInvalidHandle, params.DatabaseHandle)
	}

	db.mu.Lock()
	db.closed = true
	states := db.states.ToSlice()
	db.states.Clear()
	db.mu.Unlock()

	for _, handle := range states {
		s.statedbs.Remove(handle)
	}

	err := errors.Join(db.triedb.Close(), db.storage.Close())
	if err != nil {
		log.Error("failed to close storage", "handle", params.DatabaseHandle, "err", err)
	}
	return err
}
