package storage

import (
	"testing"
	"time"
)

func TestBoltJournalRecordsAndExpiresEntries(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		EntryTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	raw, err := openBolt(dir+"/journal.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	j := raw.(*boltJournal)
	defer j.Close()

	if _, found, err := j.Lookup("req-1"); err != nil || found {
		t.Fatalf("expected missing entry, found=%v err=%v", found, err)
	}

	entry := Entry{RequestID: "req-1", Method: "GET", URL: "http://x/", StatusCode: 200, Outcome: "load"}
	if err := j.Record(entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, found, err := j.Lookup("req-1")
	if err != nil || !found {
		t.Fatalf("expected entry, found=%v err=%v", found, err)
	}
	if got.StatusCode != 200 || got.Outcome != "load" || got.URL != "http://x/" {
		t.Fatalf("unexpected entry %#v", got)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	j.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	if _, found, err := j.Lookup("req-1"); err != nil || found {
		t.Fatalf("expected entry to expire, found=%v err=%v", found, err)
	}
}

func TestBoltJournalOverwritesEntry(t *testing.T) {
	raw, err := openBolt(t.TempDir()+"/journal.db", normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer raw.Close()

	_ = raw.Record(Entry{RequestID: "r", StatusCode: 500, Outcome: "error", ErrorKind: "status"})
	_ = raw.Record(Entry{RequestID: "r", StatusCode: 200, Outcome: "load"})

	got, found, err := raw.Lookup("r")
	if err != nil || !found || got.StatusCode != 200 || got.ErrorKind != "" {
		t.Fatalf("expected latest entry, got %#v found=%v err=%v", got, found, err)
	}
}

func TestBoltJournalRejectsEmptyID(t *testing.T) {
	raw, err := openBolt(t.TempDir()+"/journal.db", normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer raw.Close()

	if err := raw.Record(Entry{}); err == nil {
		t.Fatalf("expected error for empty request id")
	}
}

func TestNewJournalSupportsNoop(t *testing.T) {
	j, err := NewJournal("none", "", Options{})
	if err != nil {
		t.Fatalf("NewJournal none: %v", err)
	}
	if err := j.Record(Entry{RequestID: "x"}); err != nil {
		t.Fatalf("noop journal Record: %v", err)
	}
	if _, err := NewJournal("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := NewJournal("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}
