package bolt

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/quellen/codegate/internal/gate/domain"
	"github.com/quellen/codegate/internal/gate/services/evaluator"
)

var (
	bucketRefusals = []byte("refusals")
	bucketMeta     = []byte("meta")
)

// Log implements evaluator.AuditLog using bbolt. Entries are keyed by a
// monotonically increasing sequence number so journal order is insertion
// order even when clock timestamps collide.
type Log struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
// The rule set version is recorded in the meta bucket so journal entries can
// be correlated with the rule set that produced them.
func New(path string, ruleSetVersion uint64) (*Log, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRefusals); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		vbuf := make([]byte, 8)
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(vbuf, ruleSetVersion)
		binary.BigEndian.PutUint64(ubuf, uint64(time.Now().Unix()))
		if err := b.Put([]byte("rule_set_version"), vbuf); err != nil {
			return err
		}
		return b.Put([]byte("opened"), ubuf)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database.
func (l *Log) Close() error { return l.db.Close() }

// Append journals one refusal entry.
func (l *Log) Append(e domain.AuditEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRefusals)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Count returns the number of journaled refusals.
func (l *Log) Count() (uint64, error) {
	var n uint64
	err := l.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketRefusals); b != nil {
			n = uint64(b.Stats().KeyN)
		}
		return nil
	})
	return n, err
}

// Recent returns up to n of the most recent entries, newest first.
func (l *Log) Recent(n int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRefusals)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e domain.AuditEntry
			if err := json.Unmarshal(v, &e); err != nil {
				continue // skip undecodable rows rather than failing the scan
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// RuleSetVersion returns the rule set version recorded at open time.
func (l *Log) RuleSetVersion() (uint64, error) {
	var v uint64
	err := l.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta); b != nil {
			if raw := b.Get([]byte("rule_set_version")); len(raw) == 8 {
				v = binary.BigEndian.Uint64(raw)
			}
		}
		return nil
	})
	return v, err
}

var _ evaluator.AuditLog = (*Log)(nil)
