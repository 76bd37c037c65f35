package cmd

import (
	"github.com/spf13/cobra"

	boundary "github.com/oshokin/parka-boundary"
	"github.com/oshokin/parka-boundary/internal/config"
	"github.com/oshokin/parka-boundary/internal/service/verifier"
)

func newVerifyCmd() *cobra.Command {
	options := new(verifier.Options)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check archives against the manifest.",
		Long: `Check that every archive listed in the manifest exists in the given
directory with the recorded size and sha256.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if options.ManifestPath == "" {
				path, err := boundary.ManifestPath()
				if err != nil {
					return err
				}

				options.ManifestPath = path
			}

			return verifier.Run(cmd.Context(), options)
		},
	}

	flags := verifyCmd.Flags()
	flags.StringVar(&options.ManifestPath, "manifest", "", "path to manifest.json (default: bundled manifest)")
	flags.StringVar(&options.Dir, "dir", config.DefaultOutputDir, "directory holding the archives")

	return verifyCmd
}
