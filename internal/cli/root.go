// Package cli wires the unnest command line: flag and config handling via
// cobra/viper, logger construction, and mapping pipeline errors to exit
// codes.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seemrkz/unnest/internal/archive"
	"github.com/seemrkz/unnest/internal/expand"
	"github.com/seemrkz/unnest/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "unnest <input-archive> <output-dir>",
	Short: "recursively unpack nested tar/gzip archives without trusting them",
	Long: `unnest extracts an untrusted archive into an output directory and keeps
expanding archives found inside already-extracted content, up to a maximum
nesting depth.

Member paths are validated before any bytes are written: absolute paths,
parent-directory traversal and drive-letter paths reject the whole archive.
Only regular files and directories are ever extracted; symlinks, hardlinks,
devices, fifos and sockets are never written to disk. Progress is recorded
in an append-only state file inside the output directory, so an interrupted
run can be repeated safely.

Supported inputs: .tar, .tar.gz, .tgz and plain .gz files.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExpand,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.unnest.yaml)")
	rootCmd.PersistentFlags().Int("max-depth", expand.DefaultMaxDepth, "maximum archive nesting depth to expand")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().Bool("quiet", false, "only log warnings and errors")

	viper.BindPFlag("max_depth", rootCmd.PersistentFlags().Lookup("max-depth"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".unnest")
	}

	viper.SetEnvPrefix("UNNEST")
	viper.AutomaticEnv()

	// A missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

func runExpand(cmd *cobra.Command, args []string) error {
	maxDepth := viper.GetInt("max_depth")
	if maxDepth <= 0 {
		return NewAppError(ErrUsage, fmt.Sprintf("max-depth must be positive, got %d", maxDepth))
	}

	log := logging.New(logging.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Quiet:  viper.GetBool("quiet"),
	})

	summary, err := expand.Run(expand.Options{
		Input:     args[0],
		OutputDir: args[1],
		MaxDepth:  maxDepth,
		Log:       log,
	})
	if err != nil {
		return mapRunError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Expansion complete: passes=%d extracted=%d gunzipped=%d rejected=%d failed=%d skipped=%d\n",
		summary.Passes,
		summary.Extracted,
		summary.Gunzipped,
		summary.Rejected,
		summary.Failed,
		summary.Skipped,
	)
	return nil
}

// mapRunError translates pipeline failures into AppError codes. Everything
// surfacing here was fatal for the run: configuration problems or a
// top-level archive that could not be processed.
func mapRunError(err error) error {
	switch {
	case errors.Is(err, expand.ErrInputMissing), errors.Is(err, expand.ErrUnsupportedInput):
		return NewAppError(ErrConfig, err.Error())
	case errors.Is(err, expand.ErrLockHeld):
		return NewAppError(ErrIO, err.Error())
	}

	var rej *archive.RejectionError
	if errors.As(err, &rej) {
		if rej.Reason == archive.ReasonUnreadable {
			return NewAppError(ErrUnreadable, err.Error())
		}
		return NewAppError(ErrUnsafe, err.Error())
	}

	return NewAppError(ErrExtract, err.Error())
}

// Execute runs the root command and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on nil, which is wrong under tests.
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		// Anything cobra produced itself is an argument or flag problem.
		err = NewAppError(ErrUsage, err.Error())
	}
	fmt.Fprintln(stderr, FormatErrorLine(err))
	return ExitCodeFor(err)
}
