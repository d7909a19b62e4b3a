package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"learnemg/internal/gemini"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and choose Gemini models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models that support generateContent",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Pick a working model and save it as the preference",
	Args:  cobra.NoArgs,
	RunE:  runModelsDiscover,
}

var modelsUseCmd = &cobra.Command{
	Use:   "use MODEL",
	Short: "Save MODEL as the preferred model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsUse,
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsDiscoverCmd, modelsUseCmd)
}

func requireKey(c *gemini.Client) error {
	if !c.HasCredential() {
		return fmt.Errorf("%w: set GEMINI_API_KEY or run: learnemg key set", gemini.ErrMissingCredential)
	}
	return nil
}

func runModelsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := requireKey(a.client); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	list, err := a.client.ListModels(ctx)
	if err != nil {
		return err
	}

	current := a.client.Model()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, m := range list {
		mark := " "
		if m.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", mark, m.ID, m.Name)
	}
	return tw.Flush()
}

func runModelsDiscover(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := requireKey(a.client); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	id, err := a.client.DiscoverWorkingModel(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("no usable Gemini model is available for this key")
	}
	if err := a.client.SetModel(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", id)
	return nil
}

func runModelsUse(cmd *cobra.Command, args []string) error {
	store, err := openPrefs()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SetPreferredModel(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Preferred model set to %s\n", args[0])
	return nil
}
