package main

import (
	"fmt"

	"ai-reading-be/pkg/reading"

	"github.com/spf13/cobra"
)

func readCmd(flags *sessionFlags) *cobra.Command {
	var skip bool
	var mastered []string
	var answer int

	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Run a full session: diagnosis, tutoring, quiz, then the reading overview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			session, err := newSession(ctx, flags, args[0])
			if err != nil {
				return err
			}
			if err := session.LoadDocument(ctx, args[0]); err != nil {
				return err
			}

			if skip {
				session.SkipToReading(ctx)
				printTranscript(out, session.Transcript())
				return nil
			}

			for _, id := range mastered {
				session.ToggleMastered(id)
			}
			printStudyMap(out, session.State())

			session.BeginAdaptiveLearning(ctx)
			if session.State().Stage == reading.StageTutoring {
				printTranscript(out, session.TranscriptByMode(reading.ModeTutoring))
				session.EnterQuiz(ctx)
			}

			st := session.State()
			printQuiz(out, st.QuizData)
			if st.QuizData != nil && answer >= 0 {
				session.SelectQuizOption(answer)
				session.SubmitQuiz()
				if correct, graded := session.QuizResult(); graded {
					verdict := "Incorrect"
					if correct {
						verdict = "Correct"
					}
					fmt.Fprintf(out, "%s. %s\n", verdict, st.QuizData.Explanation)
				}
			}

			session.EnterReading(ctx)
			printTranscript(out, session.TranscriptByMode(reading.ModeReading))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skip, "skip", false, "skip diagnosis and go straight to reading")
	cmd.Flags().StringSliceVar(&mastered, "master", nil, "prerequisite ids already mastered (comma separated)")
	cmd.Flags().IntVar(&answer, "answer", -1, "option index to submit for the gatekeeper quiz")
	return cmd
}
