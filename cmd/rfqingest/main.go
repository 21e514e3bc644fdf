package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"rfqingest/internal/brands"
	"rfqingest/internal/config"
	"rfqingest/internal/connectors"
	"rfqingest/internal/listener"
	"rfqingest/internal/parselog"
	"rfqingest/internal/pipeline"
	"rfqingest/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cfg, err := config.Load()
	must(err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "ingest":
		runIngest(ctx, cfg, logger, args)
	case "brands:check":
		runBrandsCheck(cfg, logger, args)
	case "mail:fetch", "mail:process", "mail:listen", "export:xlsx", "log:show":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runWithDB(ctx, cmd, args, cfg, db, logger)
	default:
		usage()
		os.Exit(1)
	}
}

func runWithDB(ctx context.Context, cmd string, args []string, cfg config.Config, db *storage.DB, logger *slog.Logger) {
	switch cmd {
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(args)
		conn, err := listener.NewConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "only process emails of this provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(args)
		processor := newProcessor(cfg, db, logger)
		if strings.TrimSpace(*messageID) != "" {
			if *provider == "" {
				must(fmt.Errorf("--provider is required with --messageId"))
			}
			res, err := processor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d request=%s items=%d status=%s\n", res.EmailID, res.RequestID, res.Items, res.Status)
			return
		}
		emails, items, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d items=%d\n", emails, items)
	case "mail:listen":
		conn, err := listener.NewConnector(ctx, cfg, cfg.MailListenerProvider)
		must(err)
		svc := listener.NewService(db, cfg, conn, newProcessor(cfg, db, logger), logger)
		must(svc.Run(ctx))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "internal email id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(args)
		if *emailID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--emailId and --out are required"))
		}
		items, err := db.ListItems(*emailID)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no items for emailId=%d", *emailID))
		}
		must(pipeline.ExportItemsToXLSX(items, *out))
		fmt.Printf("exported %d items to %s\n", len(items), *out)
	case "log:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		emailID := fs.Int("emailId", 0, "internal email id")
		requestID := fs.String("requestId", "", "request id")
		asJSON := fs.Bool("json", false, "print the raw log")
		_ = fs.Parse(args)
		var log *parselog.ParseLog
		var err error
		switch {
		case *requestID != "":
			log, err = db.GetParseLog(*requestID)
		case *emailID != 0:
			log, err = db.LatestParseLog(*emailID)
		default:
			err = fmt.Errorf("--emailId or --requestId is required")
		}
		must(err)
		if log == nil {
			must(fmt.Errorf("no parse log found"))
		}
		if *asJSON {
			printJSON(log)
			return
		}
		fmt.Print(parselog.Summary(*log))
	}
}

// runIngest processes one local file, or raw text with --text, without
// touching the database.
func runIngest(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	input := fs.String("input", "", "input file (pdf, docx, xlsx, csv, txt, eml, image)")
	text := fs.String("text", "", "raw text instead of a file")
	output := fs.String("output", "", "write items to this xlsx file")
	showLog := fs.Bool("log", false, "print the parse log summary")
	_ = fs.Parse(args)

	var name string
	var data []byte
	switch {
	case *input != "":
		var err error
		data, err = os.ReadFile(*input)
		must(err)
		name = filepath.Base(*input)
	case *text != "":
		name, data = "input.txt", []byte(*text)
	default:
		must(fmt.Errorf("--input or --text is required"))
	}

	ingestor, _, err := pipeline.NewIngestorFromConfig(cfg, logger)
	must(err)
	res := ingestor.IngestDocument(ctx, name, "", data)

	if *showLog {
		fmt.Fprint(os.Stderr, parselog.Summary(res.Log))
	}
	if *output == "" {
		printJSON(res)
		return
	}
	must(pipeline.ExportItemsToXLSX(res.Items, *output))
	fmt.Printf("ingest done items=%d output=%s\n", len(res.Items), *output)
}

func runBrandsCheck(cfg config.Config, logger *slog.Logger, args []string) {
	fs := flag.NewFlagSet("brands:check", flag.ExitOnError)
	path := fs.String("path", cfg.BrandsPath, "brand list json file")
	_ = fs.Parse(args)
	if *path == "" {
		must(fmt.Errorf("--path or BRANDS_PATH is required"))
	}
	store, err := brands.NewStore(*path, cfg.BrandsCheckInterval, logger)
	must(err)
	snap := store.Current()
	cats := make([]string, 0, len(snap.Categories))
	for c := range snap.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	fmt.Printf("brands ok source=%s brands=%d\n", snap.Source, snap.Len())
	for _, c := range cats {
		fmt.Printf("  %s: %d\n", c, len(snap.Categories[c]))
	}
}

func newProcessor(cfg config.Config, db *storage.DB, logger *slog.Logger) *pipeline.ProcessingService {
	ingestor, _, err := pipeline.NewIngestorFromConfig(cfg, logger)
	must(err)
	return pipeline.NewProcessingService(db, ingestor, logger)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println("usage: rfqingest <command>")
	fmt.Println("commands:")
	fmt.Println("  ingest --input=file | --text=... [--output=items.xlsx] [--log]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:xlsx --emailId=1 --out=./out/result.xlsx")
	fmt.Println("  log:show --emailId=1 | --requestId=... [--json]")
	fmt.Println("  brands:check [--path=brands.json]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
