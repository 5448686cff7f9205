package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seedsleuth/mnemonic"
)

// enumerateCmd lists valid final words for a prefix
var enumerateCmd = &cobra.Command{
	Use:   "enumerate [eleven-word prefix]",
	Short: "List checksum-valid final words for an 11-word prefix",
	Long: `Every 11-word prefix admits exactly 128 of the 2048 dictionary words
as a checksum-valid final word. Prints them all, so a half-remembered
last word can be checked by eye.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnumerate,
}

func runEnumerate(cmd *cobra.Command, args []string) error {
	words := mnemonic.Split(args[0])
	if len(words) != mnemonic.WordCount-1 {
		return fmt.Errorf("expected %d words, got %d", mnemonic.WordCount-1, len(words))
	}

	valid, err := mnemonic.NewEnumerator(nil).ValidLastWords(words)
	if err != nil {
		return err
	}

	for i, w := range valid {
		fmt.Printf("%-12s", w)
		if (i+1)%6 == 0 {
			fmt.Println()
		}
	}
	if len(valid)%6 != 0 {
		fmt.Println()
	}
	fmt.Printf("\n%d valid final words\n", len(valid))
	return nil
}
