package cmd

import (
	"github.com/spf13/cobra"

	boundary "github.com/oshokin/parka-boundary"
	"github.com/oshokin/parka-boundary/internal/config"
	"github.com/oshokin/parka-boundary/internal/service/packager"
)

func newBuildCmd() *cobra.Command {
	options := new(packager.Options)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build .tar.gz assets and generate manifest.json.",
		Long: `Archive every directory declared in assets.yaml and write manifest.json.

Asset paths are resolved relative to the directory containing assets.yaml.
If any declared directory is missing, nothing is written. The manifest is
written next to assets.yaml unless --manifest is given.

At runtime the manifest is read from beside the parka-boundary executable,
or from the path in ` + boundary.ManifestEnv + `. Copy manifest.json next to
the executable when assembling the release, or pass --manifest pointing there.`,
		Example: "  parka-boundary build --tag v0.2.0 --output dist/",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := packager.Run(cmd.Context(), options)

			return err
		},
	}

	flags := buildCmd.Flags()
	flags.StringVar(&options.Tag, "tag", "", "release tag (e.g. v0.2.0)")
	flags.StringVar(&options.OutputDir, "output", config.DefaultOutputDir, "output directory for archives")
	flags.StringVar(&options.AssetsPath, "assets-yaml", "", "path to assets.yaml (default ./"+config.DefaultAssetsFilename+")")
	flags.StringVar(&options.ManifestPath, "manifest", "", "where to write manifest.json (default beside assets.yaml)")

	if err := buildCmd.MarkFlagRequired("tag"); err != nil {
		panic(err)
	}

	return buildCmd
}
