package metricdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
)

// Storage layout, every metric owns 2 key ranges inside of one pebble store:
//
//   m/<key>                                  registry entry, empty value
//   s/<key>\x00<be64 micros><16 bytes uuid>  one sample, float64 bits
//
// The timestamp has its sign bit flipped so the byte order of the keys is the
// time order of the samples. The uuid keeps 2 samples with the same
// timestamp apart.

const (
	metricPrefix = "m/"
	samplePrefix = "s/"
	keySep       = 0
	minKeyLength = 3
)

var ErrInvalidKey = errors.New("invalid metric key")

type Options struct {
	// directory of the store, ignored when InMemory is set
	Dir      string
	InMemory bool

	// source of the timestamp for samples without one, defaults to time.Now
	Now func() time.Time
}

type Repository struct {
	db   *pebble.DB
	sync *pebble.WriteOptions
	now  func() time.Time
}

func Open(opts Options) (*Repository, error) {
	popts := &pebble.Options{}
	sync := pebble.Sync
	if opts.InMemory {
		popts.FS = vfs.NewMem()
		sync = pebble.NoSync
	}

	db, err := pebble.Open(opts.Dir, popts)
	if err != nil {
		return nil, fmt.Errorf("metricdb open: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Repository{
		db:   db,
		sync: sync,
		now:  now,
	}, nil
}

func (self *Repository) Close() error {
	return self.db.Close()
}

// ValidKey reports whether key can name a metric.
func ValidKey(key string) bool {
	return len(key) >= minKeyLength && strings.IndexByte(key, keySep) < 0
}

func metricKey(key string) []byte {
	return []byte(metricPrefix + key)
}

// prefix successor, the exclusive upper bound of every key starting with p
func upperBound(p []byte) []byte {
	end := append([]byte{}, p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// ListMetrics returns every metric in key order.
func (self *Repository) ListMetrics() ([]*Metric, error) {
	lower := []byte(metricPrefix)
	iter, err := self.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upperBound(lower),
	})
	if err != nil {
		return nil, fmt.Errorf("metricdb list: %w", err)
	}
	defer iter.Close()

	out := []*Metric{}
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, &Metric{
			repo: self,
			key:  string(iter.Key()[len(metricPrefix):]),
		})
	}
	return out, iter.Error()
}

// FindMetric returns nil without error when the metric does not exist.
func (self *Repository) FindMetric(key string) (*Metric, error) {
	if !ValidKey(key) {
		return nil, nil
	}
	_, closer, err := self.db.Get(metricKey(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("metricdb get: %w", err)
	}
	closer.Close()
	return &Metric{repo: self, key: key}, nil
}

func (self *Repository) FindOrCreateMetric(key string) (*Metric, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if err := self.db.Set(metricKey(key), nil, self.sync); err != nil {
		return nil, fmt.Errorf("metricdb set: %w", err)
	}
	return &Metric{repo: self, key: key}, nil
}

type Metric struct {
	repo *Repository
	key  string
}

func (self *Metric) Key() string {
	return self.key
}

// Sample is a single observation, a zero Time means now.
type Sample struct {
	Time  time.Time
	Value float64
}

func encodeTime(micros int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(micros)^(1<<63))
	return b[:]
}

func decodeTime(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func (self *Metric) samplePrefix() []byte {
	buf := &bytes.Buffer{}
	buf.WriteString(samplePrefix)
	buf.WriteString(self.key)
	buf.WriteByte(keySep)
	return buf.Bytes()
}

func (self *Metric) sampleKey(micros int64) []byte {
	id := uuid.New()
	key := self.samplePrefix()
	key = append(key, encodeTime(micros)...)
	return append(key, id[:]...)
}

func (self *Metric) AddSample(s Sample) error {
	t := s.Time
	if t.IsZero() {
		t = self.repo.now()
	}

	var v [8]byte
	binary.BigEndian.PutUint64(v[:], math.Float64bits(s.Value))

	if err := self.repo.db.Set(self.sampleKey(t.UnixMicro()), v[:], self.repo.sync); err != nil {
		return fmt.Errorf("metricdb add sample: %w", err)
	}
	return nil
}

// Cursor points at the current sample of a scan, it is only valid inside of
// the scan callback.
type Cursor struct {
	key   []byte
	value []byte
	skip  int
}

// Time returns the sample timestamp in microseconds since epoch.
func (self *Cursor) Time() int64 {
	return decodeTime(self.key[self.skip : self.skip+8])
}

func (self *Cursor) Value() float64 {
	if len(self.value) != 8 {
		return math.NaN()
	}
	return math.Float64frombits(binary.BigEndian.Uint64(self.value))
}

// ScanSamples visits the samples within [from, to) in time order, returning
// false from fn stops the scan.
func (self *Metric) ScanSamples(from, to time.Time, fn func(*Cursor) bool) error {
	return self.scan(from.UnixMicro(), to.UnixMicro(), fn)
}

// ScanAll visits every sample of the metric, including the ones stamped ahead
// of the local clock.
func (self *Metric) ScanAll(fn func(*Cursor) bool) error {
	return self.scan(math.MinInt64, math.MaxInt64, fn)
}

func (self *Metric) scan(from, to int64, fn func(*Cursor) bool) error {
	if from >= to {
		return nil
	}
	prefix := self.samplePrefix()

	iter, err := self.repo.db.NewIter(&pebble.IterOptions{
		LowerBound: append(append([]byte{}, prefix...), encodeTime(from)...),
		UpperBound: append(append([]byte{}, prefix...), encodeTime(to)...),
	})
	if err != nil {
		return fmt.Errorf("metricdb scan: %w", err)
	}
	defer iter.Close()

	c := &Cursor{skip: len(prefix)}
	for iter.First(); iter.Valid(); iter.Next() {
		c.key = iter.Key()
		c.value = iter.Value()
		if !fn(c) {
			break
		}
	}
	return iter.Error()
}
