package archive

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/relaykv/harness/pkg/stats"
)

// ErrCorruptDump reports a dump file whose framing or checksums do not
// hold up. A torn final frame from a crashed writer surfaces the same way.
var ErrCorruptDump = errors.New("outcome dump corrupt")

// dumpRecord is the serialized form of one operation outcome. The error is
// flattened to its message; callers replaying a dump only need to know that
// an operation failed and why, not the concrete error type.
type dumpRecord struct {
	Index   int          `json:"index"`
	OpType  stats.OpType `json:"op_type"`
	Success bool         `json:"success"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Error   string       `json:"error,omitempty"`
}

// DumpWriter streams per-operation outcomes to a compressed dump file.
// Frame format: [DataLen:4][Data:N][Checksum:4] big-endian, where Data is
// a snappy-compressed JSON record and the checksum covers the compressed
// bytes.
type DumpWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex

	records           uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// NewDumpWriter opens or creates a dump file for appending.
func NewDumpWriter(path string) (*DumpWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create dump directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}

	return &DumpWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Append writes one outcome as a framed record.
func (d *DumpWriter) Append(out stats.OperationOutcome) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := dumpRecord{
		Index:   out.Index,
		OpType:  out.OpType,
		Success: out.Success,
		Start:   out.Start,
		End:     out.End,
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	compressed := snappy.Encode(nil, data)

	d.records++
	d.bytesUncompressed += uint64(len(data))
	d.bytesCompressed += uint64(len(compressed))

	return d.writeFrame(compressed)
}

// AppendAll writes every outcome in order.
func (d *DumpWriter) AppendAll(outcomes []stats.OperationOutcome) error {
	for _, out := range outcomes {
		if err := d.Append(out); err != nil {
			return err
		}
	}
	return nil
}

func (d *DumpWriter) writeFrame(compressed []byte) error {
	if err := binary.Write(d.writer, binary.BigEndian, uint32(len(compressed))); err != nil {
		return err
	}
	if _, err := d.writer.Write(compressed); err != nil {
		return err
	}
	if err := binary.Write(d.writer, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return err
	}
	return d.writer.Flush()
}

// Stats reports how much the dump shrank on the way to disk.
func (d *DumpWriter) Stats() DumpStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	ratio := 0.0
	if d.bytesUncompressed > 0 {
		ratio = 1.0 - (float64(d.bytesCompressed) / float64(d.bytesUncompressed))
	}

	return DumpStats{
		Records:           d.records,
		BytesUncompressed: d.bytesUncompressed,
		BytesCompressed:   d.bytesCompressed,
		CompressionRatio:  ratio,
	}
}

// Close flushes buffered frames and syncs the file.
func (d *DumpWriter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writer.Flush(); err != nil {
		return err
	}
	if err := d.file.Sync(); err != nil {
		return err
	}
	return d.file.Close()
}

// DumpStats holds compression statistics for a dump file.
type DumpStats struct {
	Records           uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64
}

// ReadDump reads every outcome from a dump file, verifying each frame's
// checksum before decompressing.
func ReadDump(path string) ([]stats.OperationOutcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	outcomes := make([]stats.OperationOutcome, 0)

	for i := 0; ; i++ {
		var dataLen uint32
		if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: truncated frame header at record %d", ErrCorruptDump, i)
		}

		compressed := make([]byte, dataLen)
		if _, err := io.ReadFull(reader, compressed); err != nil {
			return nil, fmt.Errorf("%w: truncated frame at record %d", ErrCorruptDump, i)
		}

		var checksum uint32
		if err := binary.Read(reader, binary.BigEndian, &checksum); err != nil {
			return nil, fmt.Errorf("%w: truncated checksum at record %d", ErrCorruptDump, i)
		}

		if crc32.ChecksumIEEE(compressed) != checksum {
			return nil, fmt.Errorf("%w: checksum mismatch at record %d", ErrCorruptDump, i)
		}

		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d does not decompress: %v", ErrCorruptDump, i, err)
		}

		var rec dumpRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %d: %w", i, err)
		}

		out := stats.OperationOutcome{
			Index:   rec.Index,
			OpType:  rec.OpType,
			Success: rec.Success,
			Start:   rec.Start,
			End:     rec.End,
		}
		if rec.Error != "" {
			out.Err = errors.New(rec.Error)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}
