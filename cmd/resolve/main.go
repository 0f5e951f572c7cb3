package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/browser"
	"github.com/formnav/formnav/internal/config"
	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/llm"
	"github.com/formnav/formnav/internal/navigator"
	"github.com/formnav/formnav/internal/registry"
	"github.com/formnav/formnav/internal/resolver"
	"github.com/formnav/formnav/internal/search"
	"github.com/formnav/formnav/internal/service"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	// Flags
	visible := flag.Bool("visible", false, "Open a visible browser so you can complete login walls")
	verifyOnly := flag.Bool("verify", false, "Verify candidates headlessly instead of navigating")
	rankOnly := flag.Bool("rank-only", false, "Rank candidates without touching a browser")
	registryPath := flag.String("registry", "forms.json", "Path to the known forms registry")
	timeout := flag.Duration("timeout", 2*time.Minute, "Candidate generation timeout")
	jsonOut := flag.Bool("json", false, "Print the full resolution result as JSON")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: resolve [flags] \"describe the form you need\"")
		fmt.Fprintln(os.Stderr, "Example: resolve \"I want to apply for JEE\"")
		flag.PrintDefaults()
		os.Exit(2)
	}
	query := flag.Arg(0)

	// Check API key
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		red.Println("❌ GEMINI_API_KEY not set")
		fmt.Println("   Add it to .env file or set environment variable")
		os.Exit(1)
	}

	// Setup logger
	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"/dev/null"}
		logger, _ = cfg.Build()
	}
	defer logger.Sync()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		red.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	printBanner()
	cyan.Printf("🔎 Query: %s\n", query)
	fmt.Println()

	// Gemini client
	llmCfg := llm.DefaultConfig()
	llmCfg.APIKey = apiKey
	llmClient, err := llm.NewGeminiClient(llmCfg)
	if err != nil {
		red.Printf("❌ Failed to create Gemini client: %v\n", err)
		os.Exit(1)
	}

	// Forms registry
	reg, err := registry.Load(*registryPath)
	if err != nil {
		red.Printf("❌ Failed to load registry: %v\n", err)
		os.Exit(1)
	}
	if reg.Len() == 0 {
		dim.Printf("   (no known forms registry at %s, relying on AI and search)\n", *registryPath)
	}

	// Candidate strategies
	searchClient := search.NewDuckDuckGoClient(search.Config{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Search.Timeout,
	})
	aggregator := resolver.NewAggregator([]resolver.Strategy{
		resolver.NewKnownFormsStrategy(),
		resolver.NewSynonymStrategy(nil),
		resolver.NewAIIntentStrategy(llmClient, logger),
		resolver.NewWebSearchStrategy(searchClient, cfg.Search.GovDomainPatterns, cfg.Search.MaxResults, logger),
	}, logger)

	// Browser stack, skipped entirely in rank-only mode
	var verifier service.Verifier
	var nav service.Navigator
	if !*rankOnly {
		browserCfg := browser.DefaultConfig()
		browserCfg.UserAgent = cfg.Browser.UserAgent
		factory := browser.NewFactory(browserCfg)
		defer factory.Close()

		detector := navigator.NewDetector(navigator.DefaultDetectorConfig())
		verifier = navigator.NewVerifier(factory, detector, logger)
		nav = navigator.New(factory, detector, llmClient, navigator.NewRealClock(), navigator.DefaultConfig(), logger)
	}

	svc := service.New(aggregator, reg, verifier, nav, nil, nil, cfg.Resolver.MaxCandidates, logger)

	opts := service.Options{
		Verify:   *verifyOnly,
		Navigate: !*rankOnly && !*verifyOnly,
		Headless: !*visible,
		Timeout:  *timeout,
	}

	desc := "   Ranking candidates..."
	if opts.Navigate {
		desc = "   Navigating to form..."
		if *visible {
			desc = "   Navigating (complete any login in the browser window)..."
		}
	} else if opts.Verify {
		desc = "   Verifying candidates..."
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan bool)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bar.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	result, err := svc.ResolveFormURL(context.Background(), query, opts)
	close(done)
	bar.Finish()
	fmt.Println()

	if err != nil {
		red.Printf("❌ Resolution failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	printResult(result, *visible)
}

func printBanner() {
	cyan.Println(`
╔══════════════════════════════════════════════╗
║   FormNav: find the form, not the portal     ║
╚══════════════════════════════════════════════╝`)
}

func printResult(result *domain.ResolutionResult, visible bool) {
	if len(result.Candidates) == 0 {
		yellow.Println("⚠ No candidates found for that query")
		fmt.Println("  Try rephrasing, or add the form to the registry")
		return
	}

	if result.Selected != nil && result.Selected.Navigation != nil {
		navRes := result.Selected.Navigation
		if navRes.Found {
			green.Println("✅ FORM FOUND")
			bold.Printf("   %s\n", navRes.FinalURL)
			dim.Printf("   (%s, via %s)\n", navRes.Reason, result.Selected.Source)
		} else if navRes.NeedsLogin {
			yellow.Println("🔒 LOGIN REQUIRED")
			bold.Printf("   %s\n", result.Selected.URL)
			if !visible {
				fmt.Println("   Re-run with -visible to log in yourself")
			}
		} else {
			yellow.Println("⚠ NO FORM REACHED")
			dim.Printf("   %s\n", navRes.Reason)
		}

		if len(navRes.Steps) > 0 {
			fmt.Println()
			cyan.Println("🧭 Navigation trace:")
			for i, step := range navRes.Steps {
				dim.Printf("   %d. %s\n", i+1, step)
			}
		}
	} else if result.Selected != nil {
		green.Println("✅ BEST CANDIDATE")
		bold.Printf("   %s\n", result.Selected.URL)
		dim.Printf("   (score %.2f, via %s)\n", result.Selected.Score, result.Selected.Source)
	}

	fmt.Println()
	cyan.Printf("📋 Candidates (%d):\n", len(result.Candidates))
	for i, cand := range result.Candidates {
		marker := " "
		if result.Selected != nil && cand.URL == result.Selected.URL {
			marker = "*"
		}
		fmt.Printf(" %s %d. [%.2f] %s\n", marker, i+1, cand.Score, cand.URL)
		if cand.Title != "" {
			dim.Printf("        %s (%s)\n", cand.Title, cand.Source)
		} else {
			dim.Printf("        (%s)\n", cand.Source)
		}
		if cand.Verify != nil && !cand.Verify.OK {
			dim.Printf("        verify: %s\n", cand.Verify.Reason)
		}
	}

	fmt.Println()
	dim.Printf("   Resolved in %.1fs\n", result.Duration.Seconds())
}
