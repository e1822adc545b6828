package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/ticket"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Ticket key utilities",
}

var ticketNormalizeCmd = &cobra.Command{
	Use:   "normalize <key>",
	Short: "Print the canonical form of a ticket key",
	Long: `Print the canonical form of a ticket key: uppercase code,
number zero-padded to three digits. "mdt-7" becomes "MDT-007".`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketNormalize,
}

func init() {
	ticketCmd.AddCommand(ticketNormalizeCmd)
	rootCmd.AddCommand(ticketCmd)
}

func runTicketNormalize(cmd *cobra.Command, args []string) error {
	key, ok := ticket.Normalize(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", project.ErrValidation, ticket.FormatError(args[0]))
	}

	if jsonOutput {
		return printJSON(map[string]string{
			"key":    key.String(),
			"code":   key.Code,
			"number": key.Number,
		})
	}
	fmt.Println(key)
	return nil
}
