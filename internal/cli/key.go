package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"learnemg/internal/prefs"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [KEY]",
	Short: "Store an API key (reads stdin when KEY is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeySet,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyClear,
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a key is configured",
	Args:  cobra.NoArgs,
	RunE:  runKeyStatus,
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd, keyStatusCmd)
}

func openPrefs() (*prefs.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return prefs.Open(cfg.Path("prefs.db"))
}

func runKeySet(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key from stdin: %w", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty key")
	}

	store, err := openPrefs()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SetAPIKey(key); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
	return nil
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	store, err := openPrefs()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SetAPIKey(""); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
	return nil
}

func runKeyStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.APIKey != "" {
		fmt.Fprintln(out, "Using GEMINI_API_KEY from the environment.")
		return nil
	}
	store, err := prefs.Open(cfg.Path("prefs.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	key, err := store.APIKey()
	if err != nil {
		return err
	}
	if key == "" {
		fmt.Fprintln(out, "No API key configured. Run: learnemg key set")
		return nil
	}
	fmt.Fprintf(out, "Stored key ending in …%s\n", key[max(len(key)-4, 0):])
	return nil
}
