package identity

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gallwatch/internal/components/assert"
	"gallwatch/internal/components/telemetry"
	"gallwatch/lib/textutil"
)

const (
	report_store_load        = "store.load"
	report_store_append_seen = "store.append-seen"
)

// Store owns the flat-file persistence of the denylist and the seen-logs.
//
// Layout inside the state directory, one identity per line, UTF-8:
//   - <denylist> (global, never written by this process except to create it empty)
//   - <thread>.txt per monitored thread (append-only)
type Store struct {
	dir      string
	denylist string
	tel      telemetry.API
}

func NewStore(dir, denylist string, tel telemetry.API) Store {
	assert.NotEmptyStr(denylist)
	assert.NotNil(tel)

	if dir == "" {
		dir = "."
	}
	return Store{
		dir:      dir,
		denylist: denylist,
		tel:      telemetry.NewScopedAPI("identity_store", tel),
	}
}

// DenyListPath is the location of the global denylist file.
func (s Store) DenyListPath() string {
	return filepath.Join(s.dir, s.denylist)
}

// SeenLogPath is the location of the seen-log for a thread.
func (s Store) SeenLogPath(thread ThreadHandle) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.txt", thread))
}

// LoadDenyList reads the denylist, an absent file is created empty.
func (s Store) LoadDenyList() (Set, error) {
	return s.readOrCreate(s.DenyListPath())
}

// LoadSeenLog reads the seen-log of a thread, an absent file is created empty.
// Duplicate lines collapse into a single member.
func (s Store) LoadSeenLog(thread ThreadHandle) (Set, error) {
	assert.NotEmptyStr(string(thread))
	return s.readOrCreate(s.SeenLogPath(thread))
}

// ReadDenyList reads the denylist without creating it, an absent file reads
// as empty.
func (s Store) ReadDenyList() (Set, error) {
	out, _, err := s.read(s.DenyListPath())
	return out, err
}

// ReadSeenLog reads the seen-log of a thread without creating it, an absent
// file reads as empty.
func (s Store) ReadSeenLog(thread ThreadHandle) (Set, error) {
	assert.NotEmptyStr(string(thread))
	out, _, err := s.read(s.SeenLogPath(thread))
	return out, err
}

func (s Store) readOrCreate(path string) (Set, error) {
	out, found, err := s.read(path)
	if err != nil || found {
		return out, err
	}
	err = s.create(path)
	if err != nil {
		s.tel.ReportBroken(report_store_load, fmt.Errorf("create: %w", err), path)
		return nil, err
	}
	s.tel.ReportDebug("created empty state file", path)
	return out, nil
}

func (s Store) read(path string) (out Set, found bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet(), false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_store_load, fmt.Errorf("open: %w", err), path)
		return nil, false, err
	}
	defer f.Close()

	out = NewSet()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		token := textutil.NormalizeToken(scanner.Text())
		if token == "" {
			continue
		}
		out.Add(Identity(token))
	}
	if err := scanner.Err(); err != nil {
		s.tel.ReportBroken(report_store_load, fmt.Errorf("scan: %w", err), path)
		return nil, true, err
	}
	return out, true, nil
}

func (s Store) create(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// AppendSeen appends each identity as a new line of the thread's seen-log.
// An empty set is a no-op. Content already on disk is not deduplicated
// against, loading collapses duplicates.
func (s Store) AppendSeen(thread ThreadHandle, ids Set) error {
	assert.NotEmptyStr(string(thread))
	if ids.Len() == 0 {
		return nil
	}

	path := s.SeenLogPath(thread)
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		s.tel.ReportBroken(report_store_append_seen, err, path)
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.tel.ReportBroken(report_store_append_seen, fmt.Errorf("open: %w", err), path)
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range ids.Sorted() {
		if id == "" || strings.ContainsAny(string(id), "\r\n") {
			s.tel.ReportWarning(report_store_append_seen, "refusing to write malformed identity", string(id))
			continue
		}
		_, err = w.WriteString(string(id) + "\n")
		if err != nil {
			s.tel.ReportBroken(report_store_append_seen, fmt.Errorf("write: %w", err), path)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		s.tel.ReportBroken(report_store_append_seen, fmt.Errorf("flush: %w", err), path)
		return err
	}
	return f.Sync()
}
