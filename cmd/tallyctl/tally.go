package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tallybot/internal/app"
)

func newTallyCmd(root *rootOptions) *cobra.Command {
	var req app.QueryRequest
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Answer one tally query",
		Long: `Answer a tally query exactly as the bot would reply to the requester.

Members get their own report. Reviewers get verbose reports for every member
whose name contains --query, or a CSV table of all members.

Example:
  tallyctl tally --snapshot class.yaml --stream "CS 35L Spring 2023" --requester 2 --query ali`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := root.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			reply, err := svc.Query(ctx, req)
			for i, chunk := range reply.Chunks {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), chunk)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&req.Stream, "stream", "", "Stream name")
	cmd.Flags().Int64Var(&req.RequesterID, "requester", 0, "Requester user id")
	cmd.Flags().StringVar(&req.Query, "query", "", "Name filter for reviewers")
	_ = cmd.MarkFlagRequired("stream")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}
