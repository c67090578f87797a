package main

import (
	"github.com/spf13/cobra"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// schemaOutput pairs the request sent to OneContext with the equivalent
// OpenAI response_format for a direct chat completion.
type schemaOutput struct {
	StructuredOutputRequest onecontext.StructuredOutputRequest `json:"structuredOutputRequest"`
	ResponseFormat          any                                `json:"responseFormat"`
}

func newSchemaCmd() *cobra.Command {
	var (
		name   string
		output outputFlags
	)

	cmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Print the structured-output request and OpenAI response format for a schema",
		Long: `Normalizes a JSON schema file the way search and get do and prints both the
structuredOutputRequest body and the OpenAI response_format built from it.
No API key is needed.`,
		Args: cobra.ExactArgs(1),
		// Runs offline, so skip loading configuration and the client.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			output.schemaPath = args[0]
			so, err := output.args()
			if err != nil {
				return err
			}
			req, err := onecontext.Normalize(so.Schema, so.Prompt, so.Model)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), schemaOutput{
				StructuredOutputRequest: req,
				ResponseFormat:          req.ResponseFormat(name),
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "structured_output", "response format name")
	cmd.Flags().StringVar(&output.prompt, "prompt", "", "prompt for structured output")
	cmd.Flags().StringVar(&output.model, "model", "", "model for structured output (default gpt-4o-mini)")
	return cmd
}
