package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cartify/cartify/checkout"
	"github.com/cartify/cartify/config"
	"github.com/cartify/cartify/grocer"
	"github.com/cartify/cartify/parse"
	"github.com/cartify/cartify/storage"
)

func main() {
	listPath := flag.String("list", "", "Path to a grocery list file (default: read stdin)")
	zip := flag.String("zip", "", "Delivery zip code (overrides saved preference)")
	useLLM := flag.Bool("llm", false, "Parse the list with Gemini instead of the line parser")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Println("=== Cartify Checkout ===")
	fmt.Println()

	config.LoadEnvFile()
	cfg := config.FromEnv()
	ctx := context.Background()

	items, err := parseList(ctx, *listPath, *useLLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse list: %v\n", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "No items in list")
		os.Exit(1)
	}
	fmt.Printf("Parsed %d items\n\n", len(items))

	key, err := storage.DeriveKey(cfg.TokenKeyPassphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to derive key: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open preference store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// One stable user ID for the CLI; account-backed surfaces would
	// have a real platform user ID here.
	const userID = "cli-user"

	client := grocer.NewClient(grocer.ClientOpts{
		BaseURL:   cfg.PlatformBaseURL,
		AuthToken: cfg.PlatformAPIToken,
	})

	retailer, zipCode, err := resolveRetailer(ctx, client, store, userID, *zip)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session := checkout.NewSession(checkout.Config{
		RetailerID:   retailer.ID,
		RetailerName: retailer.Name,
		ZipCode:      zipCode,
		UserID:       userID,
	}, client, items)

	fmt.Printf("\nMatching %d items at %s...\n", len(items), retailer.Name)
	if err := session.Start(ctx); err != nil && session.State() != checkout.StateConfirming {
		if session.State() != checkout.StateError {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Drain the confirmation queue interactively
	for session.State() == checkout.StateConfirming {
		pending, ok := session.CurrentPending()
		if !ok {
			break
		}
		if err := decide(ctx, session, pending); err != nil {
			if session.State() == checkout.StateConfirming {
				fmt.Printf("Invalid choice: %v\n", err)
				continue
			}
			break
		}
	}

	// Cart creation failures keep the payload; offer a retry before
	// giving up.
	for session.State() == checkout.StateError {
		err := session.Err()
		fmt.Fprintln(os.Stderr, "\n"+checkout.FormatText(checkout.MsgCartFailed, err))
		if errors.Is(err, checkout.ErrEmptyCart) {
			fmt.Fprintln(os.Stderr, "Every item was skipped; there is nothing to order.")
			os.Exit(1)
		}
		if !promptYesNo("Retry cart creation?", true) {
			os.Exit(1)
		}
		if retryErr := session.Retry(ctx); retryErr != nil {
			if errors.Is(retryErr, checkout.ErrInvalidState) {
				fmt.Fprintf(os.Stderr, "Cannot retry: %v\n", retryErr)
				os.Exit(1)
			}
			log.Warn().Err(retryErr).Msg("retry failed")
		}
	}

	if session.State() != checkout.StateComplete {
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(checkout.FormatText(checkout.MsgCartCreated,
		len(session.Matches()), checkout.FormatPrice(session.RunningTotal())))
	fmt.Printf("\nCheckout URL: %s\n", session.CheckoutURL())
	if skipped := session.Skipped(); skipped > 0 {
		fmt.Printf("(%d items skipped)\n", skipped)
	}
}

func parseList(ctx context.Context, path string, useLLM bool) ([]checkout.CartItem, error) {
	var text []byte
	var err error
	if path != "" {
		text, err = os.ReadFile(path)
	} else {
		fmt.Println("Enter your grocery list (end with Ctrl-D):")
		text, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, err
	}

	var parser parse.ListParser = parse.LineParser{}
	if useLLM {
		parser, err = parse.NewGeminiParser(ctx)
		if err != nil {
			return nil, err
		}
	}
	return parser.Parse(ctx, string(text))
}

// resolveRetailer picks the retailer and zip, offering the saved
// preference as the default and persisting the final choice.
func resolveRetailer(ctx context.Context, client *grocer.Client, store storage.PreferenceStore, userID, zipFlag string) (grocer.Retailer, string, error) {
	prefs, err := store.GetPreferences(userID)
	if err != nil {
		return grocer.Retailer{}, "", err
	}

	zipCode := zipFlag
	if zipCode == "" && prefs != nil {
		zipCode = prefs.ZipCode
	}
	if zipCode == "" {
		zipCode = prompt("Enter delivery zip code")
	}

	if prefs != nil && zipFlag == "" {
		if promptYesNo(fmt.Sprintf("Use %s (%s) again?", prefs.RetailerName, prefs.ZipCode), true) {
			return grocer.Retailer{ID: prefs.RetailerID, Name: prefs.RetailerName}, prefs.ZipCode, nil
		}
	}

	retailers, err := client.GetRetailers(ctx, zipCode)
	if err != nil {
		return grocer.Retailer{}, "", err
	}
	if len(retailers) == 0 {
		return grocer.Retailer{}, "", fmt.Errorf("no retailers deliver to %s", zipCode)
	}

	fmt.Printf("\nRetailers delivering to %s:\n", zipCode)
	for i, r := range retailers {
		line := fmt.Sprintf("  [%d] %s", i+1, r.Name)
		if r.EstimatedDelivery != "" {
			line += fmt.Sprintf(" (%s)", r.EstimatedDelivery)
		}
		fmt.Println(line)
	}
	choice := promptInt("Select retailer", 1, len(retailers))
	retailer := retailers[choice-1]

	if err := store.SavePreferences(&storage.Preferences{
		UserID:       userID,
		RetailerID:   retailer.ID,
		RetailerName: retailer.Name,
		ZipCode:      zipCode,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to save preferences")
	}

	return retailer, zipCode, nil
}

// decide shows one pending confirmation and applies the user's choice.
func decide(ctx context.Context, session *checkout.Session, pending checkout.PendingConfirmation) error {
	fmt.Println()
	if len(pending.Candidates) == 0 {
		fmt.Println(checkout.FormatText(checkout.MsgNoMatchFound,
			pending.CartItem.ProductName, session.Config().RetailerName))
		if !promptYesNo("Skip this item?", true) {
			session.Cancel()
			fmt.Println("Checkout cancelled.")
			os.Exit(0)
		}
		return session.Skip(ctx)
	}

	fmt.Println(checkout.FormatText(checkout.MsgConfirmPrompt, pending.CartItem.ProductName))
	for i, c := range pending.Candidates {
		fmt.Printf("  [%d] %s\n", i+1, checkout.FormatCandidate(c))
	}
	fmt.Printf("  [0] Skip\n")

	choice := promptInt("Select", 0, len(pending.Candidates))
	if choice == 0 {
		fmt.Println(checkout.FormatText(checkout.MsgItemSkipped, pending.CartItem.ProductName))
		return session.Skip(ctx)
	}
	if err := session.Confirm(ctx, choice-1); err != nil {
		return err
	}
	fmt.Printf("Running total: %s\n", checkout.FormatPrice(session.RunningTotal()))
	return nil
}

func prompt(label string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s: ", label)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}

func promptInt(label string, min, max int) int {
	for {
		input := prompt(fmt.Sprintf("%s [%d-%d]", label, min, max))
		val, err := strconv.Atoi(input)
		if err == nil && val >= min && val <= max {
			return val
		}
		fmt.Printf("Please enter a number between %d and %d\n", min, max)
	}
}

func promptYesNo(label string, defaultVal bool) bool {
	defaultStr := "Y/n"
	if !defaultVal {
		defaultStr = "y/N"
	}
	input := strings.ToLower(prompt(fmt.Sprintf("%s [%s]", label, defaultStr)))
	if input == "" {
		return defaultVal
	}
	return input == "y" || input == "yes"
}
