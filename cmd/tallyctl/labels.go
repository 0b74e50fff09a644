package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLabelsCmd(root *rootOptions) *cobra.Command {
	var stream string
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List the labels a stream accepts, with their deadlines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := root.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			labels, err := svc.Labels(stream)
			if err != nil {
				return err
			}
			for _, l := range labels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Text(), l.Deadline().UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "Stream name")
	_ = cmd.MarkFlagRequired("stream")
	return cmd
}
