package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/acfgen/pkg/acfgen/config"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "acfgen [appid...]",
		Short: "Generate Steam appmanifest files from SteamCMD app info",
		Long: `Acfgen asks SteamCMD for the app info of the given app ids and writes an
appmanifest_<id>.acf file for each into a Steam library's steamapps directory,
so the Steam client recognizes the games as installed.

Examples:
  acfgen 601150 1593500              # Write manifests into the configured steamapps dir
  acfgen -o ~/Steam/steamapps 601150 # Write into a specific library
  acfgen info 601150 --format json   # Show the raw app info
  acfgen list                        # List manifests already in the library
  acfgen history                     # Show previously generated manifests`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runRoot,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/acfgen/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	addOverrideFlags(rootCmd)

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	addGenerateFlags(rootCmd)
}

// addOverrideFlags registers the persistent flags that replace config values.
func addOverrideFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringP("steamapps", "o", "", "steamapps directory receiving the manifests")
	flags.StringP("platform", "p", "", "platform used to filter depots (windows, macos, linux)")
	flags.StringP("branch", "b", "", "branch whose build and manifests are used")
	flags.IntP("workers", "w", 0, "parallel manifest writers (0=config)")
	flags.String("steamcmd", "", "steamcmd command line, e.g. \"wine steamcmd.exe\"")
	flags.String("install-dir", "", "steamcmd installation directory")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// flagOverrides maps persistent flags onto the config fields they replace.
func flagOverrides(cfg *config.Config) map[string]func(cmd *cobra.Command, name string) error {
	str := func(dst *string) func(*cobra.Command, string) error {
		return func(cmd *cobra.Command, name string) error {
			v, err := cmd.Flags().GetString(name)
			if err == nil {
				*dst = v
			}
			return err
		}
	}
	return map[string]func(*cobra.Command, string) error{
		"steamapps":   str(&cfg.Output.SteamappsDir),
		"platform":    str(&cfg.Output.Platform),
		"branch":      str(&cfg.Output.Branch),
		"steamcmd":    str(&cfg.SteamCMD.Command),
		"install-dir": str(&cfg.SteamCMD.InstallDir),
		"workers": func(cmd *cobra.Command, name string) error {
			v, err := cmd.Flags().GetInt(name)
			if err == nil && v > 0 {
				cfg.Output.Workers = v
			}
			return err
		},
	}
}

// loadConfig loads the config file and applies the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}

	for name, apply := range flagOverrides(cfg) {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := apply(cmd, name); err != nil {
			return nil, fmt.Errorf("reading --%s: %w", name, err)
		}
	}

	if cfg.Output.SteamappsDir, err = config.ExpandPath(cfg.Output.SteamappsDir); err != nil {
		return nil, err
	}
	if cfg.SteamCMD.InstallDir, err = config.ExpandPath(cfg.SteamCMD.InstallDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// consoleLevel returns the console log level for the verbosity flags.
func consoleLevel() string {
	switch {
	case getQuiet():
		return ""
	case getVerbose():
		return "debug"
	default:
		return "info"
	}
}

// setup loads the configuration and starts logging. The returned function
// closes the log file.
func setup(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg, err := cfg.LoggingSetup(consoleLevel())
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Init(logCfg); err != nil {
		printError("failed to initialize logging: %v", err)
		return cfg, func() {}, nil
	}
	if logCfg.Path == "" {
		logCfg.Path = logging.DefaultLogPath()
	}
	printVerbose("logging to %s", logCfg.Path)
	return cfg, func() { _ = logging.Close() }, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
