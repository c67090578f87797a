package main

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/spf13/cobra"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// outputFlags are shared by search and get for structured output.
type outputFlags struct {
	schemaPath string
	prompt     string
	model      string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.schemaPath, "schema", "", "JSON schema file; requests structured output")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "prompt for structured output")
	cmd.Flags().StringVar(&f.model, "model", "", "model for structured output (default gpt-4o-mini)")
}

func (f *outputFlags) args() (*onecontext.StructuredOutputArgs, error) {
	if f.schemaPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(f.schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	schema, err := parseJSONObject("schema", string(data))
	if err != nil {
		return nil, err
	}
	return &onecontext.StructuredOutputArgs{
		Schema: onecontext.RawSchema(schema),
		Prompt: f.prompt,
		Model:  openai.ChatModel(f.model),
	}, nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		topK             int
		semanticWeight   float64
		fullTextWeight   float64
		rrfK             int
		includeEmbedding bool
		filter           string
		output           outputFlags
	)

	cmd := &cobra.Command{
		Use:   "search <context> <query>",
		Short: "Hybrid semantic and full-text search within a context",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilterFlag(filter)
			if err != nil {
				return err
			}
			so, err := output.args()
			if err != nil {
				return err
			}

			searchArgs := onecontext.SearchArgs{
				ContextName:      args[0],
				Query:            args[1],
				MetadataFilters:  f,
				StructuredOutput: so,
			}
			flags := cmd.Flags()
			if flags.Changed("top-k") {
				searchArgs.TopK = &topK
			}
			if flags.Changed("semantic-weight") {
				searchArgs.SemanticWeight = &semanticWeight
			}
			if flags.Changed("full-text-weight") {
				searchArgs.FullTextWeight = &fullTextWeight
			}
			if flags.Changed("rrf-k") {
				searchArgs.RRFK = &rrfK
			}
			if flags.Changed("include-embedding") {
				searchArgs.IncludeEmbedding = &includeEmbedding
			}

			resp, err := a.client.Search(cmd.Context(), searchArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "maximum number of chunks (default: no cap)")
	cmd.Flags().Float64Var(&semanticWeight, "semantic-weight", 0.5, "weight of the semantic ranking")
	cmd.Flags().Float64Var(&fullTextWeight, "full-text-weight", 0.5, "weight of the full-text ranking")
	cmd.Flags().IntVar(&rrfK, "rrf-k", 60, "reciprocal rank fusion constant")
	cmd.Flags().BoolVar(&includeEmbedding, "include-embedding", false, "return chunk embeddings")
	cmd.Flags().StringVar(&filter, "filter", "", `metadata filter, e.g. '{"team":{"$eq":"search"}}'`)
	output.register(cmd)
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var (
		limit            int
		includeEmbedding bool
		filter           string
		output           outputFlags
	)

	cmd := &cobra.Command{
		Use:   "get <context>",
		Short: "Get chunks of a context by metadata filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilterFlag(filter)
			if err != nil {
				return err
			}
			so, err := output.args()
			if err != nil {
				return err
			}

			getArgs := onecontext.GetArgs{
				ContextName:      args[0],
				MetadataFilters:  f,
				IncludeEmbedding: &includeEmbedding,
				StructuredOutput: so,
			}
			if cmd.Flags().Changed("limit") {
				getArgs.Limit = &limit
			}

			resp, err := a.client.Get(cmd.Context(), getArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of chunks (default: no cap)")
	cmd.Flags().BoolVar(&includeEmbedding, "include-embedding", false, "return chunk embeddings")
	cmd.Flags().StringVar(&filter, "filter", "", "metadata filter as JSON")
	output.register(cmd)
	return cmd
}

func newSetKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-openai-key <key>",
		Short: "Store an OpenAI API key on your OneContext account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.SetOpenAIAPIKey(cmd.Context(), onecontext.SetAPIKeyArgs{OpenAIAPIKey: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}
