package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mlehmk/fabula"
	"github.com/mlehmk/fabula/artifact"
	"github.com/mlehmk/fabula/core/pipeline"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	"github.com/spf13/cobra"
)

var (
	processOut         string
	processConfig      string
	processEmbedder    string
	processOpenAIModel string
	processPersist     bool
	processTitle       string
	processSource      string
)

var processCmd = &cobra.Command{
	Use:   "process [sentences.json]",
	Short: "Build a memory graph from annotated sentences",
	Long: `Process an annotated sentences file into a memory graph, writing all
intermediate artifacts plus memory/memory_graph.json to the output directory.

The input file holds the output of the external annotation service, either
as {"sentences": [...]} or as a bare sentence array.

Examples:
  fabula process sentences.json --out ./run
  fabula process sentences.json --out ./run --embedder local
  fabula process sentences.json --out ./run --embedder openai --persist --title "My Narrative"`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processOut, "out", "./output", "Output directory for artifacts")
	processCmd.Flags().StringVar(&processConfig, "config", "", "Pipeline config YAML file")
	processCmd.Flags().StringVar(&processEmbedder, "embedder", "none", "Embedder to use: none, local or openai")
	processCmd.Flags().StringVar(&processOpenAIModel, "openai-model", "text-embedding-3-small", "OpenAI embedding model (with --embedder openai)")
	processCmd.Flags().BoolVar(&processPersist, "persist", false, "Persist the finished graph to Postgres")
	processCmd.Flags().StringVar(&processTitle, "title", "", "Run title for persistence (defaults to the input file name)")
	processCmd.Flags().StringVar(&processSource, "source", "", "Run source for persistence (defaults to the input path)")
}

func readSentences(path string) ([]*model.Sentence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var document artifact.SentencesDocument
	if err := json.Unmarshal(data, &document); err == nil && len(document.Sentences) > 0 {
		return document.Sentences, nil
	}

	var sentences []*model.Sentence
	if err := json.Unmarshal(data, &sentences); err != nil {
		return nil, fmt.Errorf("parse input file: %w", err)
	}
	return sentences, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	input := args[0]

	sentences, err := readSentences(input)
	if err != nil {
		return err
	}

	config, err := model.LoadPipelineConfig(processConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var dbConfig *helper.DatabaseConfiguration
	if processPersist {
		dbConfig, err = helper.NewDatabaseConfiguration()
		if err != nil {
			return fmt.Errorf("load database configuration: %w", err)
		}
	}

	f, err := fabula.NewFabula(dbConfig, config)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer f.Close()

	switch processEmbedder {
	case "none":
	case "local":
		if err := f.UseDefaultPipeline(); err != nil {
			return fmt.Errorf("set up local models: %w", err)
		}
	case "openai":
		embedder, err := pipeline.NewOpenAIEmbedder(processOpenAIModel, config.EmbeddingDim)
		if err != nil {
			return fmt.Errorf("set up OpenAI embedder: %w", err)
		}
		f.Pipeline.SetEmbedder(embedder)
	default:
		return fmt.Errorf("unknown embedder %q (use none, local or openai)", processEmbedder)
	}

	memoryGraph, err := f.Run(context.Background(), sentences, processOut)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	fmt.Printf("Built memory graph: %d events, %d temporal edges, %d semantic edges\n",
		len(memoryGraph.Events), len(memoryGraph.TemporalEdges), len(memoryGraph.SemanticEdges))
	fmt.Printf("Artifacts written to %s\n", processOut)

	if processPersist {
		title := processTitle
		if title == "" {
			title = filepath.Base(input)
		}
		source := processSource
		if source == "" {
			source = input
		}

		run, err := f.PersistGraph(title, source, memoryGraph)
		if err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		fmt.Printf("Persisted run %s\n", run.RID)
	}

	return nil
}
