package storage

import (
	"bufio"
	"os"
)

// Warning describes a non-fatal issue surfaced during recovery (a
// malformed or truncated WAL line). Already-expired TTL records are
// discarded during replay without a Warning.
// The caller logs these rather than failing startup (spec §4.1 step 2).
type Warning struct {
	Line   int
	Reason string
}

// ReadWAL replays every well-formed line in the WAL file at path,
// applying each record through apply. Malformed lines (including a
// truncated trailing line left by a crash mid-write) are skipped and
// reported as warnings rather than aborting replay.
func ReadWAL(path string, apply func(Record) error) ([]Warning, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var warnings []Warning
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := DecodeRecord(line)
		if err != nil {
			warnings = append(warnings, Warning{Line: lineNo, Reason: err.Error()})
			continue
		}
		if err := apply(rec); err != nil {
			warnings = append(warnings, Warning{Line: lineNo, Reason: err.Error()})
		}
	}
	// A read error here (other than the scanner's own token-too-long) is
	// itself not fatal to recovery: best-effort replay of what parsed.
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, Warning{Line: lineNo + 1, Reason: err.Error()})
	}
	return warnings, nil
}
