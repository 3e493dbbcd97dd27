// Package cmd provides the root command and CLI setup for sourcerer.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	"sourcerer.dev/pkg/sourcerer/internal/controller"
	"sourcerer.dev/pkg/sourcerer/internal/domain"
)

var fsAdapter adapter.OutputFSAdapter
var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI

// runID identifies the current invocation in logs and the saved report.
var runID string

var (
	linksFlag    string
	urlFlag      string
	outputFlag   string
	keepFlag     bool
	methodFlag   string
	headerFlags  []string
	quietFlag    bool
	verboseFlag  bool
	yesFlag      bool
	parallelFlag int
	timeoutFlag  time.Duration
	rateFlag     float64
	reportFlag   string
	plainFlag    bool
	logFileFlag  string
	insecureFlag bool
)

func init() {
	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalOutputFSAdapter()
	reportStore = adapter.NewReportStore()
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		ui,
		domain.NewPipelineFactory(fsAdapter),
	)
}

const rootLongDescription = `Sourcerer rebuilds the original source tree of a web application from the
sourcemaps its JavaScript bundles point to.

Scripts come either from a file with one URL per line (--links) or from the
<script src> tags of a page (--url). For every script the sourcemap is located
through its sourceMappingURL directive or SourceMap header, downloaded or
decoded inline, and each embedded source is written under the output
directory at a sanitized path. Sources under node_modules are skipped unless
--keep is given.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	loadConfig()

	cmd := &cobra.Command{
		Use:               "sourcerer (-l FILE | -u URL) -o DIR",
		Short:             "Reconstruct original sources from JavaScript sourcemaps",
		Long:              rootLongDescription,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setupRun,
		RunE:              runReconstruct,
	}

	configureRootFlags(cmd)
	configureJobSourceFlags(cmd)
	configureReconstructFlags(cmd)

	return cmd
}

// setupRun assigns the run ID and configures logging for every command.
func setupRun(_ *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}

	runID = uuid.NewString()
	configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey), runID)

	return nil
}

// configureRootFlags registers the flags shared by every command.
func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&methodFlag, methodFlagName, "X", viper.GetString(httpMethodKey), "HTTP method used for every request (GET or POST)")
	bindFlagToConfig(flags.Lookup(methodFlagName), httpMethodKey)

	flags.StringArrayVarP(&headerFlags, headerFlagName, "H", nil, "extra request header 'Name: Value' (can be repeated)")
	bindFlagToConfig(flags.Lookup(headerFlagName), httpHeadersKey)

	flags.DurationVar(&timeoutFlag, timeoutFlagName, viper.GetDuration(httpTimeoutKey), "timeout for each HTTP request")
	bindFlagToConfig(flags.Lookup(timeoutFlagName), httpTimeoutKey)

	flags.Float64Var(&rateFlag, rateFlagName, viper.GetFloat64(httpRateKey), "maximum requests per second (0 = unlimited)")
	bindFlagToConfig(flags.Lookup(rateFlagName), httpRateKey)

	flags.BoolVar(&insecureFlag, insecureFlagName, viper.GetBool(httpInsecureKey), "skip TLS certificate verification")
	bindFlagToConfig(flags.Lookup(insecureFlagName), httpInsecureKey)

	flags.BoolVarP(&quietFlag, quietFlagName, "q", false, "only print errors and the final summary")
	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "print every file and debug logs")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)
	cmd.MarkFlagsMutuallyExclusive(quietFlagName, verboseFlagName)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "path of the rotating log file")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)
}

// configureJobSourceFlags registers the mutually exclusive --links and --url
// flags on a command that resolves jobs.
func configureJobSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&linksFlag, linksFlagName, "l", "", "file with one JavaScript URL per line")
	cmd.Flags().StringVarP(&urlFlag, urlFlagName, "u", "", "page URL whose <script src> tags are processed")
	cmd.MarkFlagsMutuallyExclusive(linksFlagName, urlFlagName)
	cmd.MarkFlagsOneRequired(linksFlagName, urlFlagName)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
