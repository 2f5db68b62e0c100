package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNewsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "news [id]",
		Short: "Browse curated agronomy news",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				item, err := a.client.GetNews(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s\n%s\n\n%s\n", item.Title, item.PublishedAt, item.Body)
				return nil
			}

			items, err := a.client.ListNews(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPUBLISHED")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Title, item.PublishedAt)
			}
			return w.Flush()
		},
	}
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show curated market and production figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.ListStatistics(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tVALUE\tREGION\tYEAR")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%g %s\t%s\t%d\n", s.Label, s.Value, s.Unit, s.Region, s.Year)
			}
			return w.Flush()
		},
	}
}
