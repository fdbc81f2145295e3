package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// PollInterval is how often Follow checks the file for new records.
var PollInterval = 250 * time.Millisecond

// Tail returns the last limit records matching filter and the file offset
// after the last byte read. A missing file yields no records. A non-positive
// limit returns every matching record.
func Tail(path string, filter Filter, limit int) ([]Record, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var ring []Record
	next := 0
	offset, err := scanRecords(file, filter, func(rec Record) {
		if limit <= 0 || len(ring) < limit {
			ring = append(ring, rec)
			return
		}
		ring[next] = rec
		next = (next + 1) % limit
	})
	if err != nil {
		return nil, 0, err
	}
	if next == 0 {
		return ring, offset, nil
	}
	ordered := make([]Record, 0, len(ring))
	ordered = append(ordered, ring[next:]...)
	return append(ordered, ring[:next]...), offset, nil
}

// Follow streams records appended after offset until ctx is done. It returns
// nil when the context ends.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func(Record)) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(Record)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	// Truncated or replaced file: start over.
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scanRecords(file, filter, emit)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanRecords emits every complete matching record from r and returns the
// number of bytes consumed. A trailing partial line is left for the next read.
func scanRecords(r io.Reader, filter Filter, emit func(Record)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if len(line) > maxLineBytes {
			return consumed, fmt.Errorf("read log file: line exceeds %d bytes", maxLineBytes)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if rec, ok := ParseRecord(line[:len(line)-1]); ok && filter.Match(rec) {
			emit(rec)
		}
	}
}
