package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/linkresolve"
	"github.com/dmitrijs2005/placeshare/internal/places"
	"github.com/spf13/cobra"
)

type resolveFlags struct {
	apiKey     string
	placesURL  string
	geocodeURL string
}

// NewResolveCommand runs the link pipeline without a collection store.
// Collection links are reported, not opened.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	f := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a map or app link to a place, coordinate or collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, f, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Google Places API key (overrides config)")
	cmd.Flags().StringVar(&f.placesURL, "places-url", "", "Places API base URL (overrides config)")
	cmd.Flags().StringVar(&f.geocodeURL, "geocode-url", "", "Geocoding API base URL (overrides config)")

	return cmd
}

func runResolve(rootOpts *RootOptions, f *resolveFlags, cmd *cobra.Command, raw string) error {
	c := rootOpts.Config
	logger := rootOpts.logger(cmd)

	opts := places.Options{
		APIKey:         pick(f.apiKey, c.PlacesAPIKey),
		PlacesBaseURL:  pick(f.placesURL, c.PlacesBaseURL),
		GeocodeBaseURL: pick(f.geocodeURL, c.GeocodeBaseURL),
		HTTPClient:     &http.Client{Timeout: c.LinkTimeout},
	}
	client := places.NewClient(opts, logger)

	resolver, err := linkresolve.New(linkresolve.Options{
		Scheme:         c.AppScheme,
		ShortLinkHosts: c.ShortLinkHosts,
		HTTPClient:     opts.HTTPClient,
		CacheSize:      c.DetailsCacheSize,
	}, client, client, logger)
	if err != nil {
		return err
	}

	var rec linkresolve.Recorder
	resolver.Resolve(cmd.Context(), raw, nil, &rec)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec.Result); err != nil {
		return err
	}
	if rec.Result.Outcome == linkresolve.OutcomeError {
		return fmt.Errorf("%s: %s", rec.Result.Title, rec.Result.Message)
	}
	return nil
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
