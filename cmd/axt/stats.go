package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/matsen/arxivterm/internal/lsa"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

// StatsResponse is the response for the stats command.
type StatsResponse struct {
	Dates      []paper.DateCount `json:"dates"`
	Total      int               `json:"total"`
	DataDir    string            `json:"data_dir"`
	DBPath     string            `json:"db_path"`
	LogPath    string            `json:"log_path"`
	ConfigPath string            `json:"config_path"`
	ModelSize  int64             `json:"model_size_bytes"`
	Model      lsa.Info          `json:"model"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show paper counts per publication date and storage paths",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	dates, err := s.db.StatsByDate()
	if err != nil {
		exitWithError(exitCodeFor(err), "collecting stats: %v", err)
	}
	if dates == nil {
		dates = []paper.DateCount{}
	}

	resp := StatsResponse{
		Dates:      dates,
		Total:      paper.TotalCount(dates),
		DataDir:    s.cfg.DataDir,
		DBPath:     s.cfg.DBPath,
		LogPath:    s.cfg.LogPath,
		ConfigPath: s.cfg.Path,
		Model:      lsa.Info{Path: s.cfg.ModelPath},
	}
	// An unreadable model should not hide the paper counts.
	if model, err := lsa.Open(s.cfg.ModelPath, s.log); err == nil {
		resp.Model = model.Info()
	} else {
		s.log.Warn("Cannot read model", "path", s.cfg.ModelPath, "error", err)
	}
	if fi, err := os.Stat(s.cfg.ModelPath); err == nil {
		resp.ModelSize = fi.Size()
	}

	if humanOutput {
		printStatsHuman(resp)
	} else {
		outputJSON(resp)
	}
	return nil
}

func printStatsHuman(r StatsResponse) {
	if len(r.Dates) == 0 {
		fmt.Println("No papers stored")
	}
	for _, d := range r.Dates {
		fmt.Printf("%s  %5d\n", d.Date, d.Count)
	}
	fmt.Printf("\nTotal: %s papers\n\n", humanize.Comma(int64(r.Total)))

	fmt.Printf("Data:   %s\n", r.DataDir)
	fmt.Printf("DB:     %s\n", r.DBPath)
	fmt.Printf("Log:    %s\n", r.LogPath)
	fmt.Printf("Config: %s\n", r.ConfigPath)
	if r.Model.Trained {
		fmt.Printf("Model:  %s (%s, trained %s)\n", r.Model.Path, humanize.Bytes(uint64(r.ModelSize)), humanize.Time(r.Model.TrainedAt))
	} else {
		fmt.Printf("Model:  %s (not trained)\n", r.Model.Path)
	}
}
