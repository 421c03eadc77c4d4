package main

import (
	"context"
	"flag"
	"fmt"
)

func transfer(args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	from := fs.String("from", "", "Sender address (required)")
	to := fs.String("to", "", "Recipient address (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fromAddr, err := parseAddress("from", *from)
	if err != nil {
		return err
	}
	toAddr, err := parseAddress("to", *to)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.Transfer(context.Background(), fromAddr, toAddr, value); err != nil {
		return err
	}
	fmt.Printf("transferred %s: %s -> %s\n", value.Dec(), fromAddr.Hex(), toAddr.Hex())
	return nil
}

func transferFrom(args []string) error {
	fs := flag.NewFlagSet("transferfrom", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	caller := fs.String("caller", "", "Spender submitting the call (required)")
	from := fs.String("from", "", "Balance owner (required)")
	to := fs.String("to", "", "Recipient address (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	callerAddr, err := parseAddress("caller", *caller)
	if err != nil {
		return err
	}
	fromAddr, err := parseAddress("from", *from)
	if err != nil {
		return err
	}
	toAddr, err := parseAddress("to", *to)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.TransferFrom(context.Background(), callerAddr, fromAddr, toAddr, value); err != nil {
		return err
	}
	fmt.Printf("transferred %s: %s -> %s (by %s)\n", value.Dec(), fromAddr.Hex(), toAddr.Hex(), callerAddr.Hex())
	fmt.Printf("remaining allowance: %s\n", svc.Allowance(fromAddr, callerAddr).Dec())
	return nil
}

func approve(args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	owner := fs.String("owner", "", "Allowance owner, the caller (required)")
	spender := fs.String("spender", "", "Allowance spender (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	mode := fs.String("mode", "set", "One of set, increase, decrease")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ownerAddr, err := parseAddress("owner", *owner)
	if err != nil {
		return err
	}
	spenderAddr, err := parseAddress("spender", *spender)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	switch *mode {
	case "set":
		err = svc.Approve(ctx, ownerAddr, spenderAddr, value)
	case "increase":
		err = svc.IncreaseAllowance(ctx, ownerAddr, spenderAddr, value)
	case "decrease":
		err = svc.DecreaseAllowance(ctx, ownerAddr, spenderAddr, value)
	default:
		return fmt.Errorf("--mode must be set, increase, or decrease")
	}
	if err != nil {
		return err
	}
	fmt.Printf("allowance %s -> %s is now %s\n", ownerAddr.Hex(), spenderAddr.Hex(),
		svc.Allowance(ownerAddr, spenderAddr).Dec())
	return nil
}

func mint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	caller := fs.String("caller", "", "Admin address (required)")
	to := fs.String("to", "", "Recipient address (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	callerAddr, err := parseAddress("caller", *caller)
	if err != nil {
		return err
	}
	toAddr, err := parseAddress("to", *to)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.Mint(context.Background(), callerAddr, toAddr, value); err != nil {
		return err
	}
	fmt.Printf("minted %s to %s, total supply %s\n", value.Dec(), toAddr.Hex(), svc.Snapshot().TotalSupply.Dec())
	return nil
}

func burn(args []string) error {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	caller := fs.String("caller", "", "Balance owner, the caller (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	callerAddr, err := parseAddress("caller", *caller)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.Burn(context.Background(), callerAddr, value); err != nil {
		return err
	}
	fmt.Printf("burned %s, total supply %s\n", value.Dec(), svc.Snapshot().TotalSupply.Dec())
	return nil
}

func burnFrom(args []string) error {
	fs := flag.NewFlagSet("burnfrom", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	caller := fs.String("caller", "", "Spender submitting the call (required)")
	from := fs.String("from", "", "Balance owner (required)")
	amount := fs.String("amount", "", "Amount in base units (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	callerAddr, err := parseAddress("caller", *caller)
	if err != nil {
		return err
	}
	fromAddr, err := parseAddress("from", *from)
	if err != nil {
		return err
	}
	value, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.BurnFrom(context.Background(), callerAddr, fromAddr, value); err != nil {
		return err
	}
	fmt.Printf("burned %s from %s, total supply %s\n", value.Dec(), fromAddr.Hex(), svc.Snapshot().TotalSupply.Dec())
	return nil
}

func admin(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	caller := fs.String("caller", "", "Current admin address (required)")
	halt := fs.Bool("halt", false, "Suspend value-moving operations")
	resume := fs.Bool("resume", false, "Lift a halt")
	handover := fs.String("handover", "", "Transfer administration to this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	callerAddr, err := parseAddress("caller", *caller)
	if err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *halt:
		if err := svc.Halt(ctx, callerAddr); err != nil {
			return err
		}
		fmt.Println("ledger halted")
	case *resume:
		if err := svc.Resume(ctx, callerAddr); err != nil {
			return err
		}
		fmt.Println("ledger resumed")
	case *handover != "":
		newAdmin, err := parseAddress("handover", *handover)
		if err != nil {
			return err
		}
		if err := svc.TransferAdmin(ctx, callerAddr, newAdmin); err != nil {
			return err
		}
		fmt.Printf("admin is now %s\n", newAdmin.Hex())
	default:
		return fmt.Errorf("one of --halt, --resume, or --handover is required")
	}
	return nil
}
