package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/parley/pkg/client"
)

var (
	serverAddr = flag.String("addr", client.DefaultBaseURL, "Base URL of the parley server")
	sourceLang = flag.String("source", "", "Source language code (empty: auto-detect)")
	targetLang = flag.String("target", "fr", "Target language code (e.g., en, fr)")
	provider   = flag.String("provider", "", "Provider: huggingface or google (empty: server default)")
	detectOnly = flag.Bool("detect", false, "Only detect the language of the text")
	textFile   = flag.String("file", "", "Path to text file to translate")
	text       = flag.String("text", "", "Text to translate (if file not provided)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Read text to translate
	var input string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		input = string(data)
	} else if *text != "" {
		input = *text
	} else {
		logger.Fatal("Either -file or -text must be provided")
	}

	if strings.TrimSpace(input) == "" {
		logger.Fatal("Text to translate is empty")
	}

	c := client.New(*serverAddr, client.WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Server is not reachable")
	}
	logger.WithFields(logrus.Fields{
		"server":           *serverAddr,
		"default_provider": health.Provider,
		"text_length":      len(input),
	}).Info("Connected to parley server")

	startTime := time.Now()

	if *detectOnly {
		resp, err := c.Detect(ctx, input, *provider)
		if err != nil {
			logger.WithError(err).Fatal("Detection failed")
		}
		fmt.Printf("Detected language: %s\n", resp.DetectedLanguage)
		logger.WithFields(logrus.Fields{
			"duration_seconds": time.Since(startTime).Seconds(),
		}).Info("Detection completed successfully")
		return
	}

	resp, err := c.Translate(ctx, input, *targetLang, *sourceLang, *provider)
	if err != nil {
		logger.WithError(err).Fatal("Translation failed")
	}

	source := "unknown"
	if resp.SourceLanguage != nil {
		source = *resp.SourceLanguage
	}

	// Output results
	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nProvider:        %s\n", resp.Provider)
	fmt.Printf("Source Language: %s\n", source)
	fmt.Printf("Target Language: %s\n", resp.TargetLanguage)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(resp.OriginalText)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("TRANSLATED TEXT:")
	fmt.Println(dashLine)
	fmt.Println(resp.TranslatedText)
	fmt.Println()
	fmt.Println(separator)

	logger.WithFields(logrus.Fields{
		"duration_seconds": time.Since(startTime).Seconds(),
	}).Info("Translation completed successfully")
}
