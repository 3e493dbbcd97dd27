package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sourcerer.dev/pkg/sourcerer/internal/adapter"
	"sourcerer.dev/pkg/sourcerer/internal/controller"
	"sourcerer.dev/pkg/sourcerer/internal/domain"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

// runReconstruct fetches every script, follows its sourcemap and writes the
// embedded sources under the output directory. SIGINT and SIGTERM cancel the
// run; jobs already written stay on disk.
func runReconstruct(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args, err := buildRunArgs(ctx)
	if err != nil {
		return err
	}

	_, err = workflow.Reconstruct(ctx, args)

	return handleRunError(cmd, err)
}

func configureReconstructFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFlag, outputFlagName, "o", "", "directory the sources are written to")
	cobra.CheckErr(cmd.MarkFlagRequired(outputFlagName))

	cmd.Flags().BoolVarP(&keepFlag, keepFlagName, "k", viper.GetBool(keepVendorKey), "also write sources under node_modules")
	bindFlagToConfig(cmd.Flags().Lookup(keepFlagName), keepVendorKey)

	cmd.Flags().BoolVarP(&yesFlag, yesFlagName, "y", false, "write into a non-empty output directory without asking")

	cmd.Flags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(runParallelKey), "number of scripts processed concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), runParallelKey)

	cmd.Flags().StringVar(&reportFlag, reportFlagName, viper.GetString(reportPathKey), "save a YAML run report to this file")
	bindFlagToConfig(cmd.Flags().Lookup(reportFlagName), reportPathKey)

	cmd.Flags().BoolVar(&plainFlag, plainFlagName, viper.GetBool(plainOutputKey), "disable the interactive progress view")
	bindFlagToConfig(cmd.Flags().Lookup(plainFlagName), plainOutputKey)
}

// buildRunArgs collects the run settings from flags, config and environment.
// Malformed headers are reported through the UI and dropped.
func buildRunArgs(ctx context.Context) (domain.RunArgs, error) {
	method := strings.ToUpper(strings.TrimSpace(viper.GetString(httpMethodKey)))
	if method != http.MethodGet && method != http.MethodPost {
		return domain.RunArgs{}, fmt.Errorf("%w: unsupported method %q, expected GET or POST", domain.ErrInput, method)
	}

	headers, invalid := adapter.ParseHeaders(configuredHeaders())
	for _, h := range invalid {
		ui.Warn(ctx, fmt.Sprintf("Ignoring invalid header %q, expected 'Name: Value'", h))
	}

	return domain.RunArgs{
		RunID:     runID,
		LinksFile: m.Path(linksFlag),
		PageURL:   urlFlag,
		Output:    m.Path(outputFlag),
		Policy: m.Policy{
			KeepVendorTrees:   viper.GetBool(keepVendorKey),
			OverwriteExisting: yesFlag,
			VendorMarker:      viper.GetString(vendorMarkerKey),
			Method:            method,
			Headers:           headers,
		},
		Parallel:   viper.GetInt(runParallelKey),
		Timeout:    viper.GetDuration(httpTimeoutKey),
		RateLimit:  viper.GetFloat64(httpRateKey),
		Insecure:   viper.GetBool(httpInsecureKey),
		ReportPath: m.Path(viper.GetString(reportPathKey)),
		Verbosity:  verbosity(),
		Plain:      viper.GetBool(plainOutputKey),
	}, nil
}

func verbosity() controller.Verbosity {
	switch {
	case quietFlag:
		return controller.VerbosityQuiet
	case viper.GetBool(logVerboseKey):
		return controller.VerbosityVerbose
	default:
		return controller.VerbosityNormal
	}
}

// handleRunError prints the abort notice for declined prompts and interrupts.
func handleRunError(cmd *cobra.Command, err error) error {
	if errors.Is(err, domain.ErrUserAbort) {
		cmd.PrintErrln("Exiting...")
	}

	return err
}
