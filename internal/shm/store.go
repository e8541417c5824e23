// Package shm provides the cross-process shared price store: a fixed-layout
// mmap'd region holding one (symbol, price) entry per tracked symbol, guarded
// by a named cross-process mutex (flock on a sibling lock file).
//
// Layout: 24-byte header {magic, schema version, symbol count, capacity,
// generation}, followed by capacity entries of 24 bytes each: 16-byte
// NUL-padded symbol + 8-byte little-endian float64 price. Index-based
// addressing only; no variable-length fields, so a whole-entry write is a
// bounded critical section and never allocates. The generation counter is
// assigned at creation and strictly increases across recreations of the same
// name, so a reader still holding the old mapping can detect that the region
// under the name has been structurally replaced.
package shm

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"trading_go/internal/domain"
)

const (
	magic         = 0x50425331 // "PBS1"
	schemaVersion = 1

	headerSize  = 24
	symbolWidth = 16
	entrySize   = symbolWidth + 8
)

// Store is one attachment to the shared price region. The creating process
// (the order book) is the sole writer; strategies attach with read intent.
type Store struct {
	name     string
	dataFile *os.File
	lockFile *os.File
	mem      []byte
	symbols  []string
	index    map[string]int
	owner    bool
	gen      uint64
}

// regionDir prefers /dev/shm so the region lives in memory, not on disk.
func regionDir() string {
	if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func regionPath(name string) string {
	return filepath.Join(regionDir(), name+".shm")
}

func lockPath(name string) string {
	return filepath.Join(regionDir(), name+".lock")
}

// Create creates the named region sized for exactly the given symbol set and
// initializes every price to zero. A stale region left behind by a previous
// run is detected, unlinked and recreated.
func Create(name string, symbols []string) (*Store, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("shm create %q: empty symbol set", name)
	}
	for _, sym := range symbols {
		if sym == "" || len(sym) > symbolWidth {
			return nil, fmt.Errorf("shm create %q: %w: %q", name, domain.ErrUnknownSymbol, sym)
		}
	}

	lockFile, err := os.OpenFile(lockPath(name), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm create %q: lock file: %w", name, err)
	}

	path := regionPath(name)
	gen := uint64(1)
	dataFile, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if os.IsExist(err) {
		slog.Warn("Stale shared region found, unlinking", slog.String("path", path))
		if old, readErr := readGeneration(path); readErr == nil {
			gen = old + 1
		}
		if rmErr := os.Remove(path); rmErr != nil {
			lockFile.Close()
			return nil, fmt.Errorf("shm create %q: %w: cannot unlink stale region: %v", name, domain.ErrRegionExists, rmErr)
		}
		dataFile, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	}
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("shm create %q: %w", name, err)
	}

	size := headerSize + len(symbols)*entrySize
	if err := dataFile.Truncate(int64(size)); err != nil {
		dataFile.Close()
		lockFile.Close()
		return nil, fmt.Errorf("shm create %q: truncate: %w", name, err)
	}

	mem, err := unix.Mmap(int(dataFile.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		dataFile.Close()
		lockFile.Close()
		return nil, fmt.Errorf("shm create %q: mmap: %w", name, err)
	}

	s := &Store{
		name:     name,
		dataFile: dataFile,
		lockFile: lockFile,
		mem:      mem,
		symbols:  append([]string(nil), symbols...),
		index:    make(map[string]int, len(symbols)),
		owner:    true,
		gen:      gen,
	}

	binary.LittleEndian.PutUint32(mem[0:4], magic)
	binary.LittleEndian.PutUint32(mem[4:8], schemaVersion)
	binary.LittleEndian.PutUint32(mem[8:12], uint32(len(symbols)))
	binary.LittleEndian.PutUint32(mem[12:16], uint32(len(symbols)))
	binary.LittleEndian.PutUint64(mem[16:24], gen)

	for i, sym := range symbols {
		s.index[sym] = i
		s.writeEntry(i, sym, 0)
	}
	return s, nil
}

// Attach opens an existing region with read intent. The symbol set is read
// back from the region itself so readers can size their state.
func Attach(name string) (*Store, error) {
	dataFile, err := os.OpenFile(regionPath(name), os.O_RDWR, 0)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("shm attach %q: %w", name, domain.ErrRegionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("shm attach %q: %w", name, err)
	}

	lockFile, err := os.OpenFile(lockPath(name), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("shm attach %q: lock file: %w", name, err)
	}

	st, err := dataFile.Stat()
	if err != nil || st.Size() < headerSize {
		dataFile.Close()
		lockFile.Close()
		return nil, fmt.Errorf("shm attach %q: %w: truncated header", name, domain.ErrRegionCorrupt)
	}

	size := int(st.Size())
	mem, err := unix.Mmap(int(dataFile.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		dataFile.Close()
		lockFile.Close()
		return nil, fmt.Errorf("shm attach %q: mmap: %w", name, err)
	}

	s := &Store{name: name, dataFile: dataFile, lockFile: lockFile, mem: mem}
	if err := s.validateHeader(size); err != nil {
		s.Close()
		return nil, fmt.Errorf("shm attach %q: %w", name, err)
	}

	count := int(binary.LittleEndian.Uint32(mem[8:12]))
	s.gen = binary.LittleEndian.Uint64(mem[16:24])
	s.symbols = make([]string, count)
	s.index = make(map[string]int, count)
	for i := 0; i < count; i++ {
		sym := trimSymbol(mem[headerSize+i*entrySize : headerSize+i*entrySize+symbolWidth])
		s.symbols[i] = sym
		s.index[sym] = i
	}
	return s, nil
}

func (s *Store) validateHeader(size int) error {
	if binary.LittleEndian.Uint32(s.mem[0:4]) != magic {
		return fmt.Errorf("%w: bad magic", domain.ErrRegionCorrupt)
	}
	if v := binary.LittleEndian.Uint32(s.mem[4:8]); v != schemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", domain.ErrRegionCorrupt, v, schemaVersion)
	}
	count := int(binary.LittleEndian.Uint32(s.mem[8:12]))
	capacity := int(binary.LittleEndian.Uint32(s.mem[12:16]))
	if count == 0 || count > capacity || size < headerSize+capacity*entrySize {
		return fmt.Errorf("%w: count=%d capacity=%d size=%d", domain.ErrRegionCorrupt, count, capacity, size)
	}
	return nil
}

// readGeneration reads the generation counter straight from the named region
// file, without mapping it.
func readGeneration(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var header [headerSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		return 0, err
	}
	if binary.LittleEndian.Uint32(header[0:4]) != magic {
		return 0, domain.ErrRegionCorrupt
	}
	return binary.LittleEndian.Uint64(header[16:24]), nil
}

func trimSymbol(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// writeEntry overwrites one whole entry. Caller holds the mutex (or is still
// initializing a region no reader can see yet).
func (s *Store) writeEntry(i int, sym string, price float64) {
	off := headerSize + i*entrySize
	var padded [symbolWidth]byte
	copy(padded[:], sym)
	copy(s.mem[off:off+symbolWidth], padded[:])
	binary.LittleEndian.PutUint64(s.mem[off+symbolWidth:off+entrySize], math.Float64bits(price))
}

func (s *Store) lock() error {
	return unix.Flock(int(s.lockFile.Fd()), unix.LOCK_EX)
}

func (s *Store) unlock() error {
	return unix.Flock(int(s.lockFile.Fd()), unix.LOCK_UN)
}

// Update overwrites the price entry for symbol under the cross-process mutex.
// The write is whole-entry so readers never observe a partial update.
func (s *Store) Update(symbol string, price float64) error {
	i, ok := s.index[symbol]
	if !ok {
		return fmt.Errorf("shm update: %w: %q", domain.ErrUnknownSymbol, symbol)
	}
	if err := s.lock(); err != nil {
		return fmt.Errorf("shm update: lock: %w", err)
	}
	defer s.unlock()
	s.writeEntry(i, symbol, price)
	return nil
}

// Read returns the current price for symbol.
func (s *Store) Read(symbol string) (float64, error) {
	i, ok := s.index[symbol]
	if !ok {
		return 0, fmt.Errorf("shm read: %w: %q", domain.ErrUnknownSymbol, symbol)
	}
	if err := s.lock(); err != nil {
		return 0, fmt.Errorf("shm read: lock: %w", err)
	}
	defer s.unlock()
	return s.readPrice(i), nil
}

// ReadAll returns a consistent snapshot of every entry in one lock hold.
func (s *Store) ReadAll() (map[string]float64, error) {
	if err := s.lock(); err != nil {
		return nil, fmt.Errorf("shm read all: lock: %w", err)
	}
	defer s.unlock()
	out := make(map[string]float64, len(s.symbols))
	for i, sym := range s.symbols {
		out[sym] = s.readPrice(i)
	}
	return out, nil
}

func (s *Store) readPrice(i int) float64 {
	off := headerSize + i*entrySize + symbolWidth
	return math.Float64frombits(binary.LittleEndian.Uint64(s.mem[off : off+8]))
}

// Symbols returns the tracked symbol set in region order.
func (s *Store) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Owner reports whether this attachment created the region.
func (s *Store) Owner() bool {
	return s.owner
}

// Generation returns the region's generation counter as seen at attach time.
func (s *Store) Generation() uint64 {
	return s.gen
}

// Stale reports whether the named region has been replaced since this
// attachment was made. The mapping keeps serving the old region after an
// unlink, so readers must poll this and re-attach when it turns true.
func (s *Store) Stale() bool {
	gen, err := readGeneration(regionPath(s.name))
	if err != nil {
		return true
	}
	return gen != s.gen
}

// Close unmaps the region and closes the backing files. It does not remove
// the region; detached readers may come and go freely.
func (s *Store) Close() error {
	var first error
	if s.mem != nil {
		if err := unix.Munmap(s.mem); err != nil && first == nil {
			first = err
		}
		s.mem = nil
	}
	if s.dataFile != nil {
		if err := s.dataFile.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.lockFile != nil {
		if err := s.lockFile.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Unlink removes the region and its lock file. Restricted to the creator; an
// unlinked region is gone for every attached process.
func (s *Store) Unlink() error {
	if !s.owner {
		return fmt.Errorf("shm unlink %q: not the region owner", s.name)
	}
	if err := os.Remove(regionPath(s.name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shm unlink %q: %w", s.name, err)
	}
	if err := os.Remove(lockPath(s.name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("shm unlink %q: %w", s.name, err)
	}
	return nil
}
