package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	cfgPkg "github.com/xhad/askpdf/pkg/config"
	"github.com/xhad/askpdf/pkg/session"
	"github.com/xhad/askpdf/pkg/speech"
)

type options struct {
	PDFPath    string
	ConfigPath string
	Strategy   string
	QABackend  string
	OllamaURL  string
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.PDFPath, "pdf", "", "PDF file to load")
	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.Strategy, "strategy", "", "Context strategy: full, chunk or retrieve")
	flag.StringVar(&opts.QABackend, "qa-backend", "", "Answer backend: huggingface or ollama")
	flag.StringVar(&opts.OllamaURL, "ollama-url", "", "Ollama server URL")
	flag.Parse()

	return opts
}

func loadConfig(opts options) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over the file
	if opts.Strategy != "" {
		cfg.QA.Strategy = opts.Strategy
	}
	if opts.QABackend != "" {
		cfg.QA.Backend = opts.QABackend
	}
	if opts.OllamaURL != "" {
		cfg.LLM.BaseURL = opts.OllamaURL
	}
	cfg.ApplyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s: %s", e.Field, e.Message)
		}
		return nil, fmt.Errorf("invalid configuration")
	}
	return cfg, nil
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts options) error {
	if opts.PDFPath == "" {
		flag.Usage()
		return errors.New("-pdf is required")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sessions, cleanup, err := session.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	file, err := os.Open(opts.PDFPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	spinner := getSpinner("📄 Extracting text...")
	sess, view, err := sessions.Load(ctx, filepath.Base(opts.PDFPath), file)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	color.Green("\n✓ %s\n", view.Notice)
	color.Blue("\nPreview of extracted text:\n")
	fmt.Println(view.Preview)

	recorder := session.NewRecorder(cfg)
	return chat(ctx, sessions, sess.ID, recorder)
}

func chat(ctx context.Context, sessions *session.Service, id string, recorder *speech.CommandRecorder) error {
	color.Cyan("\nAsk questions about the PDF (':voice' to speak, ':text' to type, 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	answerPrompt := color.New(color.FgCyan).PrintfFunc()

	method := session.InputText
	for {
		if method == session.InputVoice {
			userPrompt("\nPress Enter to start listening: ")
		} else {
			userPrompt("\nYou: ")
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "exit":
			return nil
		case ":voice":
			method = session.InputVoice
			continue
		case ":text":
			method = session.InputText
			continue
		}

		var (
			view session.View
			err  error
		)
		if method == session.InputVoice {
			color.Yellow("%s", speech.NoticeListening)
			spinner := getSpinner("🎙  Listening...")
			view, err = sessions.Listen(ctx, id, recorder)
			spinner.Finish()
			fmt.Print("\r")
		} else {
			if input == "" {
				continue
			}
			spinner := getSpinner("🤖 Finding the answer...")
			view, err = sessions.AskText(ctx, id, input)
			spinner.Finish()
			fmt.Print("\r")
		}

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		if view.SpeechNotice != "" {
			color.Yellow("%s\n", view.SpeechNotice)
			continue
		}
		if view.Asked != "" {
			fmt.Println(view.Asked)
		}
		if view.State == session.StateQuestionReady {
			answerPrompt("Answer: %s\n", view.Answer)
			color.Magenta("%s\n", view.Confidence)
		}
	}

	return scanner.Err()
}
