package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matsen/arxivterm/internal/pdf"
	"github.com/spf13/cobra"
)

var downloadOpen bool

func init() {
	downloadCmd.Flags().BoolVar(&downloadOpen, "open", false, "Open the PDF after downloading")
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(openCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <entry-id>",
	Short: "Download a paper's PDF into the download directory",
	Long: `Download a paper's PDF from arXiv into download_dir as <id>.pdf.

A PDF that is already present is not fetched again. The downloaded file
must parse as a PDF before it is kept.

Examples:
  axt download http://arxiv.org/abs/2403.00001v1
  axt download http://arxiv.org/abs/2403.00001v1 --open`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

var openCmd = &cobra.Command{
	Use:   "open <entry-id>",
	Short: "Open a downloaded PDF in the configured viewer",
	Long: `Open a downloaded PDF with the reader set by pdf_reader.

Examples:
  axt open http://arxiv.org/abs/2403.00001v1
  axt config pdf_reader zathura`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runDownload(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	p := s.mustGetPaper(args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pdf.NewDownloader(s.cfg.DownloadDir, s.log).Download(ctx, *p)
	if err != nil {
		exitWithError(exitCodeFor(err), "downloading: %v", err)
	}

	if humanOutput {
		if result.AlreadyPresent {
			fmt.Printf("Already downloaded: %s\n", result.Path)
		} else {
			fmt.Printf("Saved %s (%d pages)\n", result.Path, result.Pages)
		}
	} else {
		outputJSON(result)
	}

	if downloadOpen {
		if err := pdf.NewOpener(s.cfg.DownloadDir, s.cfg.PDFReader).Open(result.Path); err != nil {
			exitWithError(ExitError, "opening PDF: %v", err)
		}
	}
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	p := s.mustGetPaper(args[0])
	opener := pdf.NewOpener(s.cfg.DownloadDir, s.cfg.PDFReader)

	path, err := opener.ResolvePath(*p)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v\n\nRun 'axt download %s' first.", err, p.EntryID)
	}
	if err := opener.Open(path); err != nil {
		exitWithError(ExitError, "opening PDF: %v", err)
	}

	if humanOutput {
		fmt.Printf("Opened %s\n", path)
	} else {
		outputJSON(StatusResponse{Status: "opened", Path: path})
	}
	return nil
}
