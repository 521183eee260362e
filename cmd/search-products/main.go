package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cartify/cartify/config"
	"github.com/cartify/cartify/grocer"
)

func main() {
	query := flag.String("q", "", "Search query")
	retailer := flag.String("retailer", "", "Retailer ID")
	zip := flag.String("zip", "", "Delivery zip code")
	category := flag.String("category", "", "Category hint (e.g., produce)")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	if *query == "" || *retailer == "" {
		fmt.Fprintln(os.Stderr, "Usage: search-products -q <query> -retailer <id> [-zip <zip>] [-category <cat>]")
		os.Exit(1)
	}

	config.LoadEnvFile()
	cfg := config.FromEnv()

	client := grocer.NewClient(grocer.ClientOpts{
		BaseURL:   cfg.PlatformBaseURL,
		AuthToken: cfg.PlatformAPIToken,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	products, err := client.SearchProducts(ctx, grocer.SearchRequest{
		Query:      *query,
		RetailerID: *retailer,
		ZipCode:    *zip,
		Category:   *category,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *rawJSON {
		jsonBytes, _ := json.MarshalIndent(products, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	fmt.Printf("Found %d products\n\n", len(products))
	for i, p := range products {
		fmt.Printf("%d. %s - $%.2f (confidence %.2f)\n", i+1, p.Name, p.Price, p.Confidence)
		if p.Size != "" {
			fmt.Printf("   %s\n", p.Size)
		}
	}
}
