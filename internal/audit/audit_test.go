package audit

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestLogDropsWhenFull(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start the background goroutine — nothing drains the channel.

	for i := 0; i < bufferSize; i++ {
		w.Log(Entry{RunID: uuid.New()})
	}

	// The next log should be dropped (non-blocking).
	w.Log(Entry{RunID: uuid.New()})

	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestLogEnqueuesEntry(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start — read from the channel directly.

	runID := uuid.New()
	w.Log(Entry{
		RunID:            runID,
		Year:             2025,
		Month:            1,
		DoctorCount:      10,
		WereAllDutiesSet: true,
	})

	entry := <-w.entries
	if entry.RunID != runID {
		t.Errorf("RunID = %v, want %v", entry.RunID, runID)
	}
	if entry.Year != 2025 || entry.Month != 1 {
		t.Errorf("Year/Month = %d/%d, want 2025/1", entry.Year, entry.Month)
	}
	if !entry.WereAllDutiesSet {
		t.Error("expected WereAllDutiesSet to round-trip true")
	}
}
