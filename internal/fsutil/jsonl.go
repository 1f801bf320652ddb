package fsutil

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
)

// ReadJSONLines reads path line by line, calling fn with each non-empty
// line's raw bytes. A trailing record that does not end in a newline — the
// signature of a crash mid-append — is kept only if it is valid JSON on its
// own; otherwise it is silently dropped rather than surfaced as a parse
// error, per the crash safety contract for append-only logs.
func ReadJSONLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := trimNewline(line)
			if err == io.EOF {
				// No trailing newline: only a record that is valid JSON on
				// its own is kept; a half-written record is dropped.
				if len(trimmed) > 0 && json.Valid(trimmed) {
					if ferr := fn(trimmed); ferr != nil {
						return ferr
					}
				}
				break
			}
			if len(trimmed) > 0 {
				if ferr := fn(trimmed); ferr != nil {
					return ferr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	return nil
}

func trimNewline(line []byte) []byte {
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n]
}

// CountLines returns the number of well-formed lines in a JSONL file
// (mirroring ReadJSONLines' tolerance of a partial trailing record).
func CountLines(path string) (int, error) {
	count := 0
	err := ReadJSONLines(path, func(line []byte) error {
		count++
		return nil
	})
	return count, err
}
