package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tazhate/monitorat/config"
)

var (
	configPath string
	rootDir    string
)

var rootCmd = &cobra.Command{
	Use:   "monitorat",
	Short: "Home server dashboard with expiry reminders",
	Long: "monitorat serves a small dashboard for a home server: reminders that nag before\n" +
		"tokens and chores expire, service status, speed tests and a network log.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultPath := os.Getenv("MONITORAT_CONFIG")
	if defaultPath == "" {
		defaultPath = config.GetDefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "directory relative paths resolve against (default: config file directory)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(calendarsCmd)
}
