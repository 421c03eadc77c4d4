package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/pflow-xyz/go-ledger/service"
	"github.com/pflow-xyz/go-ledger/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "create":
		err = create(args)
	case "info":
		err = info(args)
	case "balance":
		err = balance(args)
	case "allowance":
		err = allowance(args)
	case "transfer":
		err = transfer(args)
	case "transferfrom":
		err = transferFrom(args)
	case "approve":
		err = approve(args)
	case "mint":
		err = mint(args)
	case "burn":
		err = burn(args)
	case "burnfrom":
		err = burnFrom(args)
	case "admin":
		err = admin(args)
	case "sign":
		err = sign(args)
	case "permit":
		err = permit(args)
	case "events":
		err = events(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ledger - fungible-asset ledger with signed offline authorizations

Usage:
  ledger <command> [options]

Commands:
  create        Create a new ledger database
  info          Show ledger metadata and supply
  balance       Show balance and permit nonce of an address
  allowance     Show an owner/spender allowance
  transfer      Move units between addresses
  transferfrom  Move units using a previously granted allowance
  approve       Set, raise, or lower an allowance
  mint          Create new units (admin only)
  burn          Destroy units from your own balance
  burnfrom      Destroy units using an allowance
  admin         Halt, resume, or hand over administration
  sign          Sign a permit offline with a private key
  permit        Submit a signed permit
  events        Export the event journal as JSONL or CSV
  help          Show this help message

Examples:
  # Create a ledger with one million units
  ledger create --db tally.db --name "Tally" --symbol TLY --chain 1337 \
      --max-supply 2000000 --supply 1000000 --creator 0xYourAddress

  # Move 1000 units
  ledger transfer --db tally.db --from 0xYourAddress --to 0xOther --amount 1000

  # Sign a permit offline, then submit it
  ledger sign --db tally.db --key <hex-private-key> --spender 0xSpender --value 500 --deadline 1800000000
  ledger permit --db tally.db --owner 0xYourAddress --spender 0xSpender --value 500 \
      --deadline 1800000000 --sig 0x<65-byte-signature>`)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}

// openService opens an existing ledger database.
func openService(path string) (*service.Service, *storage.Store, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}
	log := newLogger()
	store, err := storage.Open(path, log)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.Open(service.Config{Store: store, Log: log})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}

func parseAddress(flagName, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("--%s: %q is not a valid address", flagName, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(flagName, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("--%s is required", flagName)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flagName, err)
	}
	return v, nil
}
