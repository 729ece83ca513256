package archive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relaykv/harness/pkg/stats"
)

func dumpOutcomes(n int) []stats.OperationOutcome {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	out := make([]stats.OperationOutcome, 0, n)
	for i := 0; i < n; i++ {
		o := stats.OperationOutcome{
			Index:   i,
			OpType:  stats.OpPut,
			Success: i%5 != 0,
			Start:   base.Add(time.Duration(i) * time.Millisecond),
			End:     base.Add(time.Duration(i+3) * time.Millisecond),
		}
		if !o.Success {
			o.Err = errors.New("connection refused")
		}
		out = append(out, o)
	}
	return out
}

func writeDump(t *testing.T, outcomes []stats.OperationOutcome) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outcomes.dump")

	w, err := NewDumpWriter(path)
	if err != nil {
		t.Fatalf("NewDumpWriter: %v", err)
	}
	if err := w.AppendAll(outcomes); err != nil {
		t.Fatalf("AppendAll: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestDumpRoundTrip(t *testing.T) {
	want := dumpOutcomes(50)
	path := writeDump(t, want)

	got, err := ReadDump(path)
	if err != nil {
		t.Fatalf("ReadDump: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}

	for i, g := range got {
		w := want[i]
		if g.Index != w.Index || g.OpType != w.OpType || g.Success != w.Success {
			t.Errorf("record %d = %d/%s/%t, want %d/%s/%t",
				i, g.Index, g.OpType, g.Success, w.Index, w.OpType, w.Success)
		}
		if !g.Start.Equal(w.Start) || !g.End.Equal(w.End) {
			t.Errorf("record %d timestamps = %v..%v, want %v..%v", i, g.Start, g.End, w.Start, w.End)
		}
		if g.Latency() != w.Latency() {
			t.Errorf("record %d latency = %v, want %v", i, g.Latency(), w.Latency())
		}
		if w.Err != nil && (g.Err == nil || g.Err.Error() != w.Err.Error()) {
			t.Errorf("record %d error = %v, want %v", i, g.Err, w.Err)
		}
		if w.Err == nil && g.Err != nil {
			t.Errorf("record %d error = %v, want nil", i, g.Err)
		}
	}
}

func TestDumpDetectsCorruptFrame(t *testing.T) {
	path := writeDump(t, dumpOutcomes(3))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	// Flip a byte inside the first frame's data region (the frame starts
	// with a 4-byte length header).
	raw[6] ^= 0xFF
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write corrupted dump: %v", err)
	}

	_, err = ReadDump(path)
	if !errors.Is(err, ErrCorruptDump) {
		t.Errorf("ReadDump error = %v, want ErrCorruptDump", err)
	}
	if err != nil && !strings.Contains(err.Error(), "record 0") {
		t.Errorf("error does not name the bad record: %v", err)
	}
}

func TestDumpDetectsTruncation(t *testing.T) {
	path := writeDump(t, dumpOutcomes(3))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	// A torn final frame, as a crashed writer would leave behind.
	if err := os.WriteFile(path, raw[:len(raw)-3], 0644); err != nil {
		t.Fatalf("truncate dump: %v", err)
	}

	if _, err := ReadDump(path); !errors.Is(err, ErrCorruptDump) {
		t.Errorf("ReadDump error = %v, want ErrCorruptDump", err)
	}
}

func TestDumpEmpty(t *testing.T) {
	path := writeDump(t, nil)

	got, err := ReadDump(path)
	if err != nil {
		t.Fatalf("ReadDump: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records from an empty dump", len(got))
	}
}

func TestDumpAppendsAcrossWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.dump")
	first := dumpOutcomes(4)
	second := dumpOutcomes(10)[4:]

	w, err := NewDumpWriter(path)
	if err != nil {
		t.Fatalf("NewDumpWriter: %v", err)
	}
	if err := w.AppendAll(first); err != nil {
		t.Fatalf("AppendAll: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err = NewDumpWriter(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := w.AppendAll(second); err != nil {
		t.Fatalf("AppendAll after reopen: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close after reopen: %v", err)
	}

	got, err := ReadDump(path)
	if err != nil {
		t.Fatalf("ReadDump: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d records, want 10", len(got))
	}
	for i, g := range got {
		if g.Index != i {
			t.Errorf("record %d has index %d", i, g.Index)
		}
	}
}

func TestDumpStats(t *testing.T) {
	w, err := NewDumpWriter(filepath.Join(t.TempDir(), "outcomes.dump"))
	if err != nil {
		t.Fatalf("NewDumpWriter: %v", err)
	}
	defer w.Close()

	// A long repeated error message gives snappy something to chew on.
	out := stats.OperationOutcome{
		Index:  0,
		OpType: stats.OpGet,
		Err:    errors.New(strings.Repeat("dial tcp 127.0.0.1:8080: connection refused; ", 20)),
	}
	for i := 0; i < 8; i++ {
		out.Index = i
		if err := w.Append(out); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	s := w.Stats()
	if s.Records != 8 {
		t.Errorf("Records = %d, want 8", s.Records)
	}
	if s.BytesCompressed >= s.BytesUncompressed {
		t.Errorf("compression did not shrink: %d >= %d", s.BytesCompressed, s.BytesUncompressed)
	}
	if s.CompressionRatio <= 0 {
		t.Errorf("CompressionRatio = %v, want > 0", s.CompressionRatio)
	}
}
