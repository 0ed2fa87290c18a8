package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"volid/internal/credential"
	fpdfengine "volid/internal/credential/engine/fpdf"
	"volid/internal/volunteer/models"
)

type renderOptions struct {
	name     string
	id       string
	photoURL string
	layout   string
	out      string
}

// renderSampleCmd renders a credential for a synthetic active volunteer. Used to
// check layout changes without touching real records.
func renderSampleCmd(app *appContext) *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render-sample",
		Short: "Render a sample credential PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vid, ok := models.ParseVolunteerID(app.cfg.Identifier.Prefix, opts.id)
			if !ok {
				return fmt.Errorf("--id %q is not a %s identifier", opts.id, app.cfg.Identifier.Prefix)
			}
			now := time.Now().UTC()
			v := &models.Volunteer{
				ID:           uuid.New(),
				ApplicantID:  "sample",
				VolunteerID:  vid,
				FullName:     opts.name,
				ProfileImage: opts.photoURL,
				Status:       models.StatusActive,
				JoiningDate:  now,
				CreatedAt:    now,
				UpdatedAt:    now,
				ActivatedAt:  &now,
			}

			renderOpts := []credential.Option{
				credential.WithLogger(app.logger),
				credential.WithTimeout(app.cfg.Credential.RenderTimeout),
				credential.WithPhotoFetcher(credential.NewHTTPPhotoFetcher(nil,
					credential.WithAllowedPhotoHosts(app.cfg.Credential.PhotoHosts...),
				)),
			}
			if opts.layout != "" {
				renderOpts = append(renderOpts, credential.WithAssets(credential.DirAssets(opts.layout)))
			}
			renderer := credential.NewRenderer(fpdfengine.New(1), app.cfg.PublicBaseURL, renderOpts...)

			pdf, err := renderer.Render(cmd.Context(), v)
			if err != nil {
				return err
			}
			out := opts.out
			if out == "" {
				out = string(vid) + ".pdf"
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(pdf))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "Amara Okafor", "name printed on the card")
	cmd.Flags().StringVar(&opts.id, "id", "VOL0101261234", "volunteer identifier")
	cmd.Flags().StringVar(&opts.photoURL, "photo-url", "", "remote profile image URL")
	cmd.Flags().StringVar(&opts.layout, "layout", "", "layout.yaml to use instead of the embedded one")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default <id>.pdf)")
	return cmd
}
