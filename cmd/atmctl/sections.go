package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
)

func sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Manage transaction sections",
		Long: `Sections are named groupings of transactions, typically used to keep
imported datasets apart. A section that still contains transactions
cannot be deleted.`,
		RunE: runSectionsList,
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a section",
		Args:  cobra.ExactArgs(1),
		RunE:  runSectionsCreate,
	}
	create.Flags().StringP("description", "d", "", "section description")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(1),
		RunE:  runSectionsDelete,
	}
	del.Flags().BoolP("yes", "y", false, "skip confirmation")

	cmd.AddCommand(create)
	cmd.AddCommand(del)
	return cmd
}

func runSectionsList(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	sections, err := client.Sections(cmd.Context())
	if err != nil {
		return err
	}

	if len(sections) == 0 {
		fmt.Println(cli.FormatInfo("No sections defined."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTRANSACTIONS\tDESCRIPTION")
	for _, s := range sections {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", s.ID, s.Name, s.TransactionCount, s.Description)
	}
	return w.Flush()
}

func runSectionsCreate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	description, _ := cmd.Flags().GetString("description")
	section, err := client.CreateSection(cmd.Context(), args[0], description)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created section %q (id %d)", section.Name, section.ID)))
	return nil
}

func runSectionsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "section")
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		prompter := cli.NewPrompter(nil, nil)
		ok, promptErr := prompter.Confirm(cmd.Context(),
			fmt.Sprintf("Delete section %d?", id), false)
		if promptErr != nil {
			return promptErr
		}
		if !ok {
			fmt.Println(cli.FormatInfo("Aborted."))
			return nil
		}
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	if err := client.DeleteSection(cmd.Context(), id); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted section %d", id)))
	return nil
}
