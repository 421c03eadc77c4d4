package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pflow-xyz/go-ledger/token"
)

func sign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	key := fs.String("key", "", "Hex private key of the allowance owner (required)")
	spender := fs.String("spender", "", "Allowance spender (required)")
	value := fs.String("value", "", "Allowance value in base units (required)")
	deadline := fs.Uint64("deadline", 0, "Expiry as a unix timestamp, inclusive (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ledger sign [options]

Sign a permit offline. The owner address is derived from the key; the nonce
and domain separator are read from the ledger database. The printed signature
can be submitted by anyone with "ledger permit".

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key == "" {
		return fmt.Errorf("--key is required")
	}
	priv, err := crypto.HexToECDSA(*key)
	if err != nil {
		return fmt.Errorf("--key: %w", err)
	}
	owner := crypto.PubkeyToAddress(priv.PublicKey)

	spenderAddr, err := parseAddress("spender", *spender)
	if err != nil {
		return err
	}
	amount, err := parseAmount("value", *value)
	if err != nil {
		return err
	}
	if *deadline == 0 {
		return fmt.Errorf("--deadline is required")
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	nonce := svc.Nonce(owner)
	sig, err := token.SignPermit(priv, svc.DomainSeparator(), owner, spenderAddr, amount, nonce, *deadline)
	if err != nil {
		return err
	}

	fmt.Printf("owner:     %s\n", owner.Hex())
	fmt.Printf("spender:   %s\n", spenderAddr.Hex())
	fmt.Printf("value:     %s\n", amount.Dec())
	fmt.Printf("nonce:     %d\n", nonce)
	fmt.Printf("deadline:  %d\n", *deadline)
	fmt.Printf("signature: 0x%x\n", sig.Bytes())
	return nil
}

func permit(args []string) error {
	fs := flag.NewFlagSet("permit", flag.ExitOnError)
	db := fs.String("db", "", "Ledger database file (required)")
	owner := fs.String("owner", "", "Allowance owner who signed the permit (required)")
	spender := fs.String("spender", "", "Allowance spender (required)")
	value := fs.String("value", "", "Allowance value in base units (required)")
	deadline := fs.Uint64("deadline", 0, "Expiry as a unix timestamp, inclusive (required)")
	sigHex := fs.String("sig", "", "65-byte signature as hex (required)")
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
	amount, err := parseAmount("value", *value)
	if err != nil {
		return err
	}
	if *sigHex == "" {
		return fmt.Errorf("--sig is required")
	}
	sig, err := token.SignatureFromBytes(common.FromHex(*sigHex))
	if err != nil {
		return fmt.Errorf("--sig: %w", err)
	}

	svc, store, err := openService(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.Permit(context.Background(), ownerAddr, spenderAddr, amount, *deadline, sig); err != nil {
		return err
	}
	fmt.Printf("permit applied: allowance %s -> %s is now %s (nonce %d)\n",
		ownerAddr.Hex(), spenderAddr.Hex(), amount.Dec(), svc.Nonce(ownerAddr))
	return nil
}
