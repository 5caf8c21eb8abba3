package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		mediaType  string
		year       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Look up a title with the metadata providers",
		Long: `Search TMDB, Google Books or iTunes directly.

Examples:
  renamer search "The Matrix" --year 1999
  renamer search "Breaking Bad" --type tv
  renamer search "Dune Frank Herbert" --type book`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := media.ParseType(mediaType)
			if !t.Known() {
				return fmt.Errorf("unknown type %q (use movie, tv, book or audiobook)", mediaType)
			}

			svc, cleanup, err := openService()
			if err != nil {
				return err
			}
			defer cleanup()

			candidates, err := svc.Search(cmd.Context(), strings.Join(args, " "), t, year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if candidates == nil {
					candidates = []media.Candidate{}
				}
				return writeJSON(out, candidates)
			}
			if len(candidates) == 0 {
				fmt.Fprintln(out, ui.Warning("No matches."))
				return nil
			}
			return candidatesTable(candidates).Print(out)
		},
	}

	cmd.Flags().StringVarP(&mediaType, "type", "t", "movie", "media type: movie, tv, book, audiobook")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "release year (movies)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	return cmd
}
