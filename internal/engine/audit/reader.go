package audit

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// maxLineSize bounds a single audit line during reads. Entries are small;
// anything larger indicates a corrupted file.
const maxLineSize = 1 << 20

// Recent returns the last n entries in reverse chronological order (most
// recent first). Downstream displays depend on this ordering. Unparseable
// lines (e.g. a torn final write) are skipped rather than failing the read.
func (l *Logger) Recent(n int) ([]enginetypes.AuditEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	// Keep a sliding window of the last n parseable entries.
	window := make([]enginetypes.AuditEntry, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry enginetypes.AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if len(window) == n {
			copy(window, window[1:])
			window = window[:n-1]
		}
		window = append(window, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Reverse: newest first.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window, nil
}

// Stats summarises the audit trail by action and result.
type Stats struct {
	Total         int64
	ByAction      map[string]int64
	ByResult      map[string]int64
	WriteFailures uint64
}

// Stats scans the whole log and returns aggregate counts, plus the in-process
// count of swallowed write failures.
func (l *Logger) Stats() (Stats, error) {
	stats := Stats{
		ByAction:      make(map[string]int64),
		ByResult:      make(map[string]int64),
		WriteFailures: l.writeFailures.Load(),
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry enginetypes.AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		stats.Total++
		stats.ByAction[entry.Action]++
		if entry.Result != "" {
			stats.ByResult[entry.Result]++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
