package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/query"
)

func presetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage saved filter presets",
		Long: `Presets are named filter descriptors stored locally. Save the flags of
a history query once, then reuse them anywhere a filter applies with
--preset <name>.`,
		RunE: runPresetsList,
	}

	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the given filter flags under a name",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetsSave,
	}
	addFilterFlags(save)

	cmd.AddCommand(save)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetsDelete,
	})

	return cmd
}

func runPresetsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	presets, err := store.ListPresets(ctx)
	if err != nil {
		return err
	}

	if len(presets) == 0 {
		fmt.Println(cli.FormatInfo("No saved presets. Create one with: atmctl presets save <name> [filter flags]"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tFILTER")
	for _, p := range presets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.CreatedAt.Format("2006-01-02"), p.Params)
	}
	return w.Flush()
}

func runPresetsSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := filterFromFlags(ctx, cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	encoded := f.Encode()
	if err := store.SavePreset(ctx, args[0], encoded); err != nil {
		return err
	}

	// Round-trip once so a preset that cannot be parsed back is caught
	// at save time rather than at use time.
	if _, err := query.ParseFilter(encoded); err != nil {
		return fmt.Errorf("saved preset does not round-trip: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved preset %q", args[0])))
	return nil
}

func runPresetsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeletePreset(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted preset %q", args[0])))
	return nil
}
