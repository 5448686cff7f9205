package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seedsleuth/derive"
	"seedsleuth/mnemonic"
)

// deriveCmd prints the addresses a sentence resolves to
var deriveCmd = &cobra.Command{
	Use:   "derive [sentence]",
	Short: "Derive addresses for a 12-word sentence across the four standards",
	Long: `Prints the receive addresses a wallet would generate from the given
sentence, one line per configured derivation path. Useful for checking
a recovered sentence against a known address by eye.

The sentence passes through your shell; prefer a session without
persistent history.`,
	Args: cobra.ExactArgs(1),
	RunE: runDerive,
}

func runDerive(cmd *cobra.Command, args []string) error {
	words := mnemonic.Split(args[0])
	if len(words) != mnemonic.WordCount {
		return fmt.Errorf("expected %d words, got %d", mnemonic.WordCount, len(words))
	}
	if err := mnemonic.NewEnumerator(nil).Validate(words); err != nil {
		return err
	}

	deriver := derive.NewDeriver(nil, cfg.Derive.Specs())
	addrs, err := deriver.Addresses(mnemonic.Join(words))
	if err != nil {
		return err
	}

	for _, a := range addrs {
		fmt.Printf("%-14s %-18s %s\n", a.Standard, a.Path, a.Address)
	}
	return nil
}
