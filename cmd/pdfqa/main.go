package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/dgallion1/pdfqa/internal/app"
	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/qa"
	"github.com/dgallion1/pdfqa/internal/session"
	"github.com/dgallion1/pdfqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		threshold float64
		noTUI     bool
	)
	flag.StringVar(&cfgPath, "config", "", "YAML config file (defaults to $PDFQA_CONFIG)")
	flag.Float64Var(&threshold, "threshold", -1, "highlight similarity threshold in [0,1) (default from config)")
	flag.BoolVar(&noTUI, "no-tui", false, "plain line-oriented prompt instead of the terminal UI")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pdfqa [-config file] [-threshold t] [-no-tui] <path_to_pdf>")
		os.Exit(1)
	}
	pdfPath := flag.Arg(0)

	if err := run(pdfPath, cfgPath, threshold, noTUI); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(pdfPath, cfgPath string, threshold float64, noTUI bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if threshold >= 0 {
		cfg.HighlightThreshold = threshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := fileLogger(os.Getenv("PDFQA_LOG_FILE"))
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	comps, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	defer comps.Close()

	fmt.Printf("Reading PDF: %s\n", pdfPath)
	idx, err := qa.BuildIndex(ctx, pdfPath, comps.Index)
	if err != nil {
		return fmt.Errorf("process pdf: %w", err)
	}
	st := idx.Stats()
	fmt.Printf("Extracted %d characters from %d pages\n", st.Chars, st.Pages)
	fmt.Printf("Split into %d text chunks\n", st.Chunks)

	sess := session.New(pdfPath, filepath.Base(pdfPath), false)
	sess.SetIndex(idx)
	// Highlighted copies only live for this run.
	defer sess.Close()

	ask := func(ctx context.Context, q string) (qa.Answer, error) {
		return comps.Assistant.Ask(ctx, sess, idx, q)
	}

	if noTUI {
		return prompt(ctx, os.Stdin, os.Stdout, ask)
	}

	summary := fmt.Sprintf("%s  |  %d pages  |  %d chunks  |  %s", sess.PDFName, st.Pages, st.Chunks, comps.Answerer.Model())
	_, err = tea.NewProgram(tui.New(ctx, ask, summary), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func prompt(ctx context.Context, in io.Reader, out io.Writer, ask tui.AskFunc) error {
	fmt.Fprintln(out, "\nYou can now ask questions about the PDF content. Type 'exit' to quit.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Read in the background so an interrupt does not wait for a line.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		defer func() {
			scanErr <- sc.Err()
			close(lines)
		}()
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "\nQuestion: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return <-scanErr
			}
			line = l
		}

		q := strings.TrimSpace(line)
		if strings.EqualFold(q, "exit") {
			return nil
		}
		if q == "" {
			continue
		}
		ans, err := ask(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\nAnswer: %s\n", ans.Text)
		if ans.ArtifactPath != "" {
			fmt.Fprintf(out, "Highlighted on pages %v: %s\n", ans.Pages, ans.ArtifactPath)
		}
	}
}

func fileLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { f.Close() }, nil
}
