package main

import (
	"flag"
	"fmt"
)

func info(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	snap := svc.Snapshot()
	fmt.Printf("%s (%s), %d decimals\n", snap.Name, snap.Symbol, snap.Decimals)
	fmt.Printf("  instance address: %s (chain %d)\n", snap.Address.Hex(), snap.ChainID)
	fmt.Printf("  supply:           %s of %s\n", snap.TotalSupply.Dec(), snap.MaxSupply.Dec())
	fmt.Printf("  holders:          %d\n", len(snap.Balances))
	fmt.Printf("  admin:            %s\n", snap.Admin.Hex())
	fmt.Printf("  halted:           %v\n", snap.Halted)
	sep := svc.DomainSeparator()
	fmt.Printf("  domain separator: 0x%x\n", sep)
	return nil
}

func balance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	addr := fs.String("addr", "", "Address to query (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := parseAddress("addr", *addr)
	if err != nil {
		return err
	}
	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("balance: %s\n", svc.Balance(a).Dec())
	fmt.Printf("nonce:   %d\n", svc.Nonce(a))
	return nil
}

func allowance(args []string) error {
	fs := flag.NewFlagSet("allowance", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	owner := fs.String("owner", "", "Allowance owner (required)")
	spender := fs.String("spender", "", "Allowance spender (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	o, err := parseAddress("owner", *owner)
	if err != nil {
		return err
	}
	s, err := parseAddress("spender", *spender)
	if err != nil {
		return err
	}
	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println(svc.Allowance(o, s).Dec())
	return nil
}
