// Command stampbatch stamps every PDF listed in a YAML manifest and
// optionally builds the evidence index.
//
//	stampbatch --manifest jobs.yaml --out ./stamped [--config stamp.json] [--docx] [--template t.docx]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/infrastructure/database"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/infrastructure/logger"
	"evidence-stamp/internal/infrastructure/repository"
	"evidence-stamp/internal/usecase"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("stampbatch", pflag.ContinueOnError)
	manifestPath := flags.StringP("manifest", "m", "", "YAML manifest listing the jobs (required)")
	flags.StringP("out", "o", "", "output directory (overrides the manifest)")
	flags.StringP("config", "c", "", "stamp settings JSON (defaults to store.file_path)")
	docx := flags.Bool("docx", false, "generate the evidence index DOCX")
	xlsx := flags.Bool("xlsx", false, "generate the evidence list XLSX")
	template := flags.String("template", "", "DOCX template for the evidence index")
	flags.String("log-level", "", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "stampbatch: --manifest is required")
		flags.Usage()
		return 2
	}

	v := viper.New()
	v.BindPFlag("output.default_dir", flags.Lookup("out"))
	v.BindPFlag("store.file_path", flags.Lookup("config"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
	if flags.Changed("config") {
		v.Set("store.backend", config.StoreBackendFile)
	}

	cfg, err := config.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stampbatch: %v\n", err)
		return 2
	}

	manifest, err := LoadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stampbatch: %v\n", err)
		return 2
	}
	req := manifest.Request()
	if flags.Changed("out") {
		req.OutDir = cfg.Output.DefaultDir
	}
	if flags.Changed("docx") {
		req.Index.Enabled = docx
	}
	if flags.Changed("xlsx") {
		req.Index.MakeXLSX = xlsx
	}
	if *template != "" {
		req.Index.TemplatePath = *template
	}

	var (
		batch usecase.BatchUsecase
		log   *zap.Logger
	)
	app := fx.New(
		fx.Supply(cfg),
		logger.Module,
		database.Module,
		document.Module,
		repository.Module,
		usecase.Module,
		fx.Populate(&batch, &log),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "stampbatch: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "stampbatch: %v\n", err)
		return 2
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Stop(stopCtx)
		log.Sync()
	}()

	result, err := batch.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stampbatch: %v\n", err)
		return 1
	}

	printResult(result)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

func printResult(res *entity.BatchResult) {
	for _, job := range res.Jobs {
		switch job.Status {
		case entity.JobStatusDone:
			fmt.Printf("  ok      %s -> %s\n", job.Label, job.OutputPath)
		case entity.JobStatusSkipped:
			fmt.Printf("  skipped %s: %s\n", job.SourcePath, job.Error)
		default:
			fmt.Printf("  %-7s %s: %s\n", job.Status, job.SourcePath, job.Error)
		}
	}

	if res.IndexPath != "" {
		fmt.Printf("index: %s\n", res.IndexPath)
	}
	if res.XLSXPath != "" {
		fmt.Printf("list:  %s\n", res.XLSXPath)
	}
	if res.IndexError != "" {
		fmt.Printf("index error: %s\n", res.IndexError)
	}

	fmt.Printf("batch %s: %d succeeded, %d failed, %d skipped\n",
		res.BatchID, res.Succeeded, res.Failed, res.Skipped)
}
