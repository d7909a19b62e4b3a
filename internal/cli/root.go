// Package cli wires configuration, storage and the Gemini client together
// behind the learnemg command line.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagPersona    string
	flagContentDir string
	flagModel      string
	flagTheme      string
)

var rootCmd = &cobra.Command{
	Use:   "learnemg",
	Short: "EMG and nerve conduction study pages with an AI companion",
	Long: "learnemg shows electrodiagnostic study modules in the terminal beside a Gemini-backed\n" +
		"companion that explains selected text, answers questions and, as Dr. Grimsby, heckles.",
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ~/.config/learnemg/config.toml)")
	pf.StringVar(&flagModel, "model", "", "Gemini model id for this run")

	rootCmd.Flags().StringVar(&flagPersona, "persona", "", "starting persona: mentor or grump")
	rootCmd.Flags().StringVar(&flagContentDir, "content-dir", "", "directory of markdown study modules")
	rootCmd.Flags().StringVar(&flagTheme, "theme", "", "dark or light (default: detect)")

	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
}
