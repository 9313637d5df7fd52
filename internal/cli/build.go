package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cabinetquote/internal/bootstrap"
	"cabinetquote/internal/cache"
	"cabinetquote/internal/google"
	"cabinetquote/internal/kbbuild"
)

var buildNoCache bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the knowledge base from the Drive folder",
	Long: `Fetch every .eml and .pdf quote in the configured Drive folder, embed them
and write the index and corpus files the server loads at startup.

The previous files are only replaced when the whole run succeeds.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "embed every document even if a cached vector exists")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ts, source, err := bootstrap.GoogleTokenSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("google credentials unavailable, run 'quotekb auth' first: %w", err)
	}
	fmt.Printf("Using Google credentials from %s\n", source)

	drive, err := google.NewDriveSource(ctx, ts, cfg.Knowledge.DriveFolder, cfg.Knowledge.FetchConcurrency)
	if err != nil {
		return err
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	opts := kbbuild.Options{
		IndexPath:  cfg.Knowledge.IndexPath,
		CorpusPath: cfg.Knowledge.CorpusPath,
		BatchSize:  cfg.Embedding.BatchSize,
		Model:      embedder.Model(),
		Progress:   newProgress(),
	}
	if cfg.Knowledge.EmbeddingCache != "" && !buildNoCache {
		embCache, err := cache.OpenEmbeddingCache(cfg.Knowledge.EmbeddingCache)
		if err != nil {
			return err
		}
		defer embCache.Close()
		opts.Cache = embCache
	}

	fmt.Printf("Fetching quotes from Drive folder %q...\n", cfg.Knowledge.DriveFolder)
	start := time.Now()
	res, err := kbbuild.New(drive, embedder, opts).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d quotes (dimension %d) in %s\n", res.Documents, res.Dimension, time.Since(start).Round(time.Millisecond))
	if opts.Cache != nil {
		fmt.Printf("  Embedded: %d, reused from cache: %d\n", res.Embedded, res.CacheHits)
	}
	fmt.Printf("  Index:  %s\n  Corpus: %s\n", cfg.Knowledge.IndexPath, cfg.Knowledge.CorpusPath)
	return nil
}

// newProgress creates the bar lazily once the document count is known.
func newProgress() func(done, total int) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		_ = bar.Set(done)
	}
}
