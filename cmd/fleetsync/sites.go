package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List configured job sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := organizationID(false)
		if err != nil {
			return err
		}
		repo, err := buildRepository(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer repo.Close()

		sites, err := repo.ListJobSites(cmd.Context(), orgID)
		if err != nil {
			return fmt.Errorf("list job sites: %w", err)
		}
		if len(sites) == 0 {
			fmt.Println("No job sites configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tLATITUDE\tLONGITUDE")
		for _, s := range sites {
			fmt.Fprintf(w, "%s\t%s\t%.6f\t%.6f\n", s.Code, s.Name, s.Latitude, s.Longitude)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
