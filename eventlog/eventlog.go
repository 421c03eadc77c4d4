// Package eventlog reads and writes ledger event streams as JSONL and CSV,
// for audit export and offline analysis.
package eventlog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-ledger/token"
)

// csvHeader is the fixed column layout of CSV exports.
var csvHeader = []string{"id", "type", "from", "to", "amount", "at"}

// WriteJSONL writes events one JSON object per line.
func WriteJSONL(w io.Writer, events []token.Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL parses a JSONL event stream. Empty lines are skipped.
func ReadJSONL(r io.Reader) ([]token.Event, error) {
	var events []token.Event
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e token.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return events, nil
}

// WriteCSV writes events with a header row. Amounts are decimal strings,
// timestamps RFC 3339.
func WriteCSV(w io.Writer, events []token.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range events {
		amount := ""
		if e.Amount != nil {
			amount = e.Amount.Dec()
		}
		record := []string{
			e.ID,
			string(e.Type),
			e.From.Hex(),
			e.To.Hex(),
			amount,
			e.At.Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV event stream produced by WriteCSV.
func ReadCSV(r io.Reader) ([]token.Event, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}

	var events []token.Event
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		e := token.Event{
			ID:   record[0],
			Type: token.EventType(record[1]),
			From: common.HexToAddress(record[2]),
			To:   common.HexToAddress(record[3]),
		}
		if record[4] != "" {
			amount, err := uint256.FromDecimal(record[4])
			if err != nil {
				return nil, fmt.Errorf("row %d: amount %q: %w", row, record[4], err)
			}
			e.Amount = amount
		}
		at, err := parseTimestamp(record[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		e.At = at
		events = append(events, e)
	}
	return events, nil
}

// ExportJSONL writes events to a JSONL file, creating or truncating it.
func ExportJSONL(filename string, events []token.Event) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	if err := WriteJSONL(f, events); err != nil {
		return err
	}
	return f.Close()
}

// ExportCSV writes events to a CSV file, creating or truncating it.
func ExportCSV(filename string, events []token.Event) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, events); err != nil {
		return err
	}
	return f.Close()
}

func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if ts, err := time.Parse(format, s); err == nil {
			return ts, nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
