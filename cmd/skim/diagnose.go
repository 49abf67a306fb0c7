package main

import (
	"github.com/spf13/cobra"
)

func diagnoseCmd(flags *sessionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <file>",
		Short: "Print the study map and document type of a PDF or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession(cmd.Context(), flags, args[0])
			if err != nil {
				return err
			}
			if err := session.LoadDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			printStudyMap(cmd.OutOrStdout(), session.State())
			return nil
		},
	}
}
