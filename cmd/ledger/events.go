package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/go-ledger/eventlog"
)

func events(args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	format := fs.String("format", "jsonl", "Output format: jsonl or csv")
	output := fs.String("output", "", "Output file (stdout when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	evts, err := svc.Events()
	if err != nil {
		return err
	}

	if *output != "" {
		switch *format {
		case "jsonl":
			err = eventlog.ExportJSONL(*output, evts)
		case "csv":
			err = eventlog.ExportCSV(*output, evts)
		default:
			return fmt.Errorf("--format must be jsonl or csv")
		}
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d events to %s\n", len(evts), *output)
		return nil
	}

	switch *format {
	case "jsonl":
		return eventlog.WriteJSONL(os.Stdout, evts)
	case "csv":
		return eventlog.WriteCSV(os.Stdout, evts)
	default:
		return fmt.Errorf("--format must be jsonl or csv")
	}
}
