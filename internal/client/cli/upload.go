package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/dmitrijs2005/placeshare/internal/netx"
	"github.com/spf13/cobra"
)

// NewUploadAvatarCommand PUTs an image to a presigned avatar URL, as the app
// does after asking the API for an upload URL.
func NewUploadAvatarCommand(rootOpts *RootOptions) *cobra.Command {
	var url, contentType string

	cmd := &cobra.Command{
		Use:   "upload-avatar <file>",
		Short: "Upload a collection avatar image to a presigned URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}

			client := &http.Client{Timeout: netx.DefaultTimeout}
			if err := netx.UploadToPresignedURL(cmd.Context(), client, url, contentType, data); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes\n", len(data))
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "presigned PUT URL")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (detected when empty)")

	return cmd
}
