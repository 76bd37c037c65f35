package cmd

import (
	"github.com/spf13/cobra"

	boundary "github.com/oshokin/parka-boundary"
	repository "github.com/oshokin/parka-boundary/internal/repository/manifest"
)

func newShowCmd() *cobra.Command {
	var manifestPath string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the bundled manifest.",
		Long: `Print the manifest that ships with this release.

By default the manifest is looked up beside the executable, or at the path
in the ` + boundary.ManifestEnv + ` environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				m   *boundary.Manifest
				err error
			)

			if manifestPath != "" {
				m, err = boundary.LoadManifest(manifestPath)
			} else {
				m, err = boundary.GetManifest()
			}

			if err != nil {
				return err
			}

			data, err := repository.Encode(m)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	showCmd.Flags().StringVar(&manifestPath, "manifest", "", "path to manifest.json (default: bundled manifest)")

	return showCmd
}
