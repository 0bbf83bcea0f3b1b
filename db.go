package filcache

import (
	"filcache/lsm"
	"filcache/utils"
	"filcache/utils/errs"
	"sync"
)

type DB struct {
	sync.RWMutex
	opt *utils.Options
	lsm *lsm.LSM
}

// Open opens (or creates) a store rooted at opt.WorkDir, wiring up the
// filter cache, table cache and value log carried on opt.
func Open(opt *utils.Options) *DB {
	db := &DB{opt: opt}
	db.lsm = lsm.NewLSM(opt)
	return db
}

// Close flushes any unwritten data and releases every open table and its
// filter cache entries.
func (db *DB) Close() error {
	return db.lsm.Close()
}

func (db *DB) Set(data *utils.Entry) error {
	if data == nil || len(data.Key) == 0 {
		return errs.ErrEmptyKey
	}

	//data.Key = codec.KeyWithTs(data.Key, uint64(time.Now().Unix()))

	return db.lsm.Set(data)
}
func (db *DB) Get(key []byte) (*utils.Entry, error) {
	if len(key) == 0 {
		return nil, errs.ErrEmptyKey
	}

	var entry *utils.Entry
	var err error
	if entry, err = db.lsm.Get(key); err != nil {
		return entry, err
	}

	return entry, nil
}
