package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNotesCommand(a *app) *cobra.Command {
	notes := &cobra.Command{
		Use:   "notes",
		Short: "Manage farming notes",
	}

	notes.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your notes",
			RunE: func(cmd *cobra.Command, args []string) error {
				items, err := a.client.ListNotes(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Println("No notes yet.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
				for _, n := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\n", n.ID, n.Title, n.UpdatedAt)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "add <title> [body...]",
			Short: "Create a note",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				note, err := a.client.CreateNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Printf("Created note %s\n", note.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				note, err := a.client.GetNote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s\n\n%s\n", note.Title, note.Body)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit <id> <title> [body...]",
			Short: "Update a note",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				note, err := a.client.UpdateNote(cmd.Context(), args[0], args[1], strings.Join(args[2:], " "))
				if err != nil {
					return err
				}
				fmt.Printf("Updated note %s\n", note.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.client.DeleteNote(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted note %s\n", args[0])
				return nil
			},
		},
	)

	return notes
}
