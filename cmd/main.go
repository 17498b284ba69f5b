package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	cfgPkg "github.com/xhad/sage/pkg/config"
	"github.com/xhad/sage/pkg/rag"
	"github.com/xhad/sage/server"
)

type Config struct {
	ConfigPath string
	DocsPath   string
	Clear      bool
	Stats      bool
	Serve      bool
	Addr       string
	BaseURL    string
	DBUrl      string
	Model      string
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.DocsPath, "docs", "", "Course documents folder to ingest")
	flag.BoolVar(&config.Clear, "clear", false, "Clear existing index before ingesting")
	flag.BoolVar(&config.Stats, "stats", false, "Print course statistics and exit")
	flag.BoolVar(&config.Serve, "serve", false, "Run the HTTP/WebSocket server instead of the chat loop")
	flag.StringVar(&config.Addr, "addr", ":8080", "Server listen address")
	flag.StringVar(&config.BaseURL, "ollama-url", "", "Ollama server URL")
	flag.StringVar(&config.DBUrl, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&config.Model, "model", "", "LLM model to use")
	flag.Parse()

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
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

func run(config Config) error {
	// Local .env files supplement the environment, never override flags.
	godotenv.Load()

	cfg, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Command line flags win over config file and environment.
	if config.BaseURL != "" {
		cfg.LLM.BaseURL = config.BaseURL
	}
	if config.DBUrl != "" {
		cfg.Database.URL = config.DBUrl
	}
	if config.Model != "" {
		cfg.LLM.Model = config.Model
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("invalid configuration")
	}

	system, err := rag.NewSystem(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize system: %v", err)
	}
	defer system.Close()

	ctx := context.Background()

	if config.DocsPath != "" {
		color.Blue("\nIngesting course documents from %s\n", config.DocsPath)

		ingestBar := getProgressBar(-1, "📚 Indexing courses...")
		system.OnIngestProgress(func(file string) {
			ingestBar.Add(1)
			ingestBar.Describe(color.BlueString("📚 Indexing %s", file))
		})

		courses, chunks, err := system.AddCourseFolder(ctx, config.DocsPath, config.Clear)
		if err != nil {
			return fmt.Errorf("failed to ingest documents: %v", err)
		}
		ingestBar.Finish()
		color.Green("\n✓ Added %d courses (%d chunks)\n", courses, chunks)
	}

	if config.Stats {
		total, titles, err := system.GetCourseStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read course stats: %v", err)
		}
		color.Cyan("\n%d courses indexed:", total)
		for _, title := range titles {
			fmt.Printf("  - %s\n", title)
		}
		return nil
	}

	if config.Serve {
		return server.New(system).Run(config.Addr)
	}

	return chatLoop(ctx, system)
}

func chatLoop(ctx context.Context, system *rag.System) error {
	color.Cyan("\nAsk about your courses (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	sourceLine := color.New(color.Faint).PrintfFunc()

	sessionID := system.NewSessionID()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		responseSpinner := getSpinner("🤖 Generating response...")
		answer, sources, err := system.Query(ctx, query, sessionID)
		responseSpinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("Assistant: %s\n", answer)

		for _, src := range sources {
			if src.Lesson != nil {
				sourceLine("  ↳ %s, Lesson %d\n", src.CourseTitle, *src.Lesson)
			} else {
				sourceLine("  ↳ %s\n", src.CourseTitle)
			}
		}
	}

	return nil
}
