package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/matsen/arxivterm/internal/semantic"
	"github.com/spf13/cobra"
)

var trainForce bool

func init() {
	trainCmd.Flags().BoolVarP(&trainForce, "force", "f", false, "Retrain even if a model already exists")
	rootCmd.AddCommand(trainCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the embedding model on stored abstracts",
	Long: `Train the LSA embedding model on the abstracts of all stored papers.

An existing model is kept unless --force is given. Training settings
come from the model section of the config file.

Examples:
  axt train
  axt train --force`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	stats, err := s.searcher().Train(trainForce)
	if err != nil {
		exitWithError(exitCodeFor(err), "training model: %v", err)
	}

	if humanOutput {
		printTrainHuman(stats)
	} else {
		outputJSON(stats)
	}
	return nil
}

func printTrainHuman(stats semantic.TrainStats) {
	if stats.Trained {
		fmt.Printf("Trained model on %s abstracts\n", humanize.Comma(int64(stats.Documents)))
	} else {
		fmt.Println("Model already trained (use --force to retrain)")
	}
	info := stats.Model
	fmt.Printf("  Path:        %s\n", info.Path)
	if !info.TrainedAt.IsZero() {
		fmt.Printf("  Trained:     %s (%s)\n", info.TrainedAt.Local().Format("2006-01-02 15:04"), humanize.Time(info.TrainedAt))
	}
	fmt.Printf("  Documents:   %s\n", humanize.Comma(int64(info.Documents)))
	fmt.Printf("  Vocabulary:  %s terms\n", humanize.Comma(int64(info.VocabularySize)))
	fmt.Printf("  Dimensions:  %d\n", info.EmbeddingDim)
}
