package storage

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeRunRejectsUnknownVersions(t *testing.T) {
	run := sampleRun("r1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	run.SchemaVersion = CurrentSchemaVersion + 1
	run.CodecVersion = CurrentCodecVersion
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	data, err = EncodeRun(Stamp(run))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode stamped run: %v", err)
	}
	if decoded.ID != run.ID || decoded.Config.Seed != 42 {
		t.Fatalf("unexpected run decoded: %+v", decoded)
	}
}

func TestDecodeRunRejectsGarbage(t *testing.T) {
	if _, err := DecodeRun([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeHistory([]byte("[{")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewStore(t *testing.T) {
	if DefaultStoreKind() != KindSQLite {
		t.Fatalf("default store kind %q", DefaultStoreKind())
	}
	memory, err := NewStore(KindMemory, "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if err := CloseIfSupported(memory); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
	if _, ok := memory.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", memory)
	}

	sqlite, err := NewStore(KindSQLite, "evoforge.db")
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if _, ok := sqlite.(*SQLiteStore); !ok {
		t.Fatalf("expected *SQLiteStore, got %T", sqlite)
	}

	if _, err := NewStore("unknown", ""); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
