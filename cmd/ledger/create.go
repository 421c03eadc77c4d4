package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pflow-xyz/go-ledger/service"
	"github.com/pflow-xyz/go-ledger/storage"
	"github.com/pflow-xyz/go-ledger/token"
)

func create(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	name := fs.String("name", "", "Asset name (required)")
	symbol := fs.String("symbol", "", "Asset symbol (required)")
	decimals := fs.Uint("decimals", 18, "Display decimal count")
	chain := fs.Uint64("chain", 1, "Chain identity bound into permits")
	address := fs.String("address", "", "Instance address bound into permits (derived from name and symbol when omitted)")
	maxSupply := fs.String("max-supply", "", "Supply cap (required)")
	supply := fs.String("supply", "0", "Initial supply, credited to the creator")
	creator := fs.String("creator", "", "Creator and initial admin address (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ledger create [options]

Create a new ledger database.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *db == "" {
		return fmt.Errorf("--db is required")
	}
	if *name == "" || *symbol == "" {
		return fmt.Errorf("--name and --symbol are required")
	}
	creatorAddr, err := parseAddress("creator", *creator)
	if err != nil {
		return err
	}
	maxAmount, err := parseAmount("max-supply", *maxSupply)
	if err != nil {
		return err
	}
	initialAmount, err := parseAmount("supply", *supply)
	if err != nil {
		return err
	}

	instance := common.Address{}
	if *address != "" {
		if instance, err = parseAddress("address", *address); err != nil {
			return err
		}
	} else {
		instance = common.BytesToAddress(crypto.Keccak256([]byte(*name), []byte(*symbol))[12:])
	}

	log := newLogger()
	store, err := storage.Open(*db, log)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := service.Open(service.Config{
		Store: store,
		Log:   log,
		Ledger: token.Config{
			Name:          *name,
			Symbol:        *symbol,
			Decimals:      uint8(*decimals),
			ChainID:       *chain,
			Address:       instance,
			MaxSupply:     maxAmount,
			InitialSupply: initialAmount,
			Creator:       creatorAddr,
		},
	})
	if err != nil {
		return err
	}

	snap := svc.Snapshot()
	fmt.Printf("Created %s (%s) in %s\n", snap.Name, snap.Symbol, *db)
	fmt.Printf("  instance address: %s (chain %d)\n", snap.Address.Hex(), snap.ChainID)
	fmt.Printf("  supply:           %s of %s\n", snap.TotalSupply.Dec(), snap.MaxSupply.Dec())
	fmt.Printf("  admin:            %s\n", snap.Admin.Hex())
	sep := svc.DomainSeparator()
	fmt.Printf("  domain separator: 0x%x\n", sep)
	return nil
}
