package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/pkg/identification"
)

// newIdentifyCommand runs the full pipeline on a local image without a
// database, so nothing is saved and nearby sightings are always 0.
func newIdentifyCommand(cli *cliContext) *cobra.Command {
	var candidateOnly bool

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify the species in a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			contentType := http.DetectContentType(image)

			pipeline := newPipeline(cli.cfg, cli.logger, nil, nil)

			var out any
			if candidateOnly {
				candidate, err := pipeline.Identify(cmd.Context(), image, contentType)
				if err != nil {
					return err
				}
				out = handlers.NewSpeciesResponse(candidate)
			} else {
				result, err := pipeline.Scan(cmd.Context(), identification.Request{Image: image, ContentType: contentType})
				if err != nil {
					return err
				}
				out = result
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&candidateOnly, "candidate-only", false, "stop after identification, skipping registry and narrative lookups")
	return cmd
}
