package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretKeys are masked by config show.
var secretKeys = map[string]bool{
	"crawl.client_secret": true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the crawl configuration",
	Long: `View and edit the configuration file.

Keys use dot notation: crawl.tenant_id, crawl.threads,
fields.defaults.source, fields.mapping.title.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Store the application client secret",
	Long:  `Prompts for the client secret without echoing it and stores it as crawl.client_secret.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigSecret,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSecretCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Configuration (%s)\n", store.Path())
	keys := store.Keys()
	if len(keys) == 0 {
		cmd.Println("  (empty)")
		return nil
	}
	for _, k := range keys {
		v, _ := store.Get(k)
		if secretKeys[k] {
			v = maskSecret(fmt.Sprint(v))
		}
		cmd.Printf("  %s = %v\n", k, v)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	key := strings.TrimSpace(args[0])
	if !strings.Contains(key, ".") {
		key = "crawl." + key
	}
	if err := store.Set(key, args[1]); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	cmd.Printf("%s updated.\n", key)
	return nil
}

func runConfigSecret(cmd *cobra.Command, _ []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	cmd.Print("Client secret: ")
	secret := readSecret(cmd.InOrStdin())
	cmd.Println()
	if secret == "" {
		return fmt.Errorf("client secret is empty")
	}
	if err := store.Set("crawl.client_secret", secret); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	cmd.Println("Client secret saved.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader) string {
	// Read without echo when attached to a terminal
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
