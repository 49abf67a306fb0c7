package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "skim",
		Short:         "Run adaptive reading sessions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := &sessionFlags{}
	root.PersistentFlags().StringVar(&flags.provider, "provider", "", "LLM provider: gemini|ollama|huggingface (default from LLM_PROVIDER)")
	root.PersistentFlags().StringVar(&flags.model, "model", "", "model name (default from LLM_MODEL or the provider default)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "diagnosis timeout (default from READING_DIAGNOSIS_TIMEOUT)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(diagnoseCmd(flags))
	root.AddCommand(readCmd(flags))
	root.AddCommand(watchCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
