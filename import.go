package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Seed the catalog with shows, seasons and episodes",
		Long: `Read a JSON document of shows, seasons and episodes and upsert it into
the local catalog. Episodes without "released" have no known air date and are
never marked watched or skipped by a season action.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

// importOutput is the JSON schema for `import --json`.
type importOutput struct {
	Shows    int `json:"shows"`
	Seasons  int `json:"seasons"`
	Episodes int `json:"episodes"`
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	store, err := openStore(ctx, cc)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Import(ctx, f)
	if err != nil {
		return err
	}

	if cc.JSON {
		return printJSON(cc.Out, importOutput(stats))
	}

	fmt.Fprintf(cc.Out, "Imported %d show(s), %d season(s), %d episode(s)\n",
		stats.Shows, stats.Seasons, stats.Episodes)

	return nil
}
