//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the Library Ledger API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <patron1> [patron2 ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid>  PATRONS=alice,bob,...  TOKEN=<session>  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per patron) all attempting to borrow the same book simultaneously.
//  2. Prints how many borrows succeeded vs. were refused as unavailable.
//  3. Re-reads the book and checks that quantity never went negative.
//
// Prerequisites:
//   - Server must be running and TOKEN must be a valid session (see POST /auth/login).
//   - The book and the named patrons must exist.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Patron     string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	token := os.Getenv("TOKEN")

	bookID := os.Getenv("BOOK_ID")
	var patrons []string
	if env := os.Getenv("PATRONS"); env != "" {
		patrons = strings.Split(env, ",")
	}

	// Support positional args: script <book_id> [patrons...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		patrons = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> PATRONS=<p1,p2,...> TOKEN=<session> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <patron1> [patron2 ...]")
	}
	if len(patrons) == 0 {
		log.Fatal("At least one patron name must be provided via PATRONS env or positional args")
	}
	if token == "" {
		log.Fatal("TOKEN must hold a session token")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	before, err := bookQuantity(client, serverAddr, bookID, token)
	if err != nil {
		log.Fatalf("failed to read book: %v", err)
	}

	fmt.Printf("=== Library Concurrency Test ===\n")
	fmt.Printf("Server   : %s\n", serverAddr)
	fmt.Printf("Book     : %s (quantity %d)\n", bookID, before)
	fmt.Printf("Patrons  : %d\n\n", len(patrons))

	results := make([]borrowResult, len(patrons))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, name := range patrons {
		wg.Add(1)
		go func(idx int, patron string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(client, serverAddr, bookID, token, patron)
		}(i, strings.TrimSpace(name))
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, refused, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] patron=%-24s err=%v\n", r.Patron, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
			fmt.Printf("  [LOAN] patron=%-24s status=%d\n", r.Patron, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			refused++
			fmt.Printf("  [BUSY] patron=%-24s status=%d\n", r.Patron, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] patron=%-24s status=%d unexpected response\n", r.Patron, r.StatusCode)
		}
	}

	after, err := bookQuantity(client, serverAddr, bookID, token)
	if err != nil {
		log.Fatalf("failed to re-read book: %v", err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed   : %d\n", borrowed)
	fmt.Printf("Refused    : %d\n", refused)
	fmt.Printf("Failures   : %d\n", failures)
	fmt.Printf("Quantity   : %d -> %d\n\n", before, after)

	fmt.Println("--- Invariant Check ---")
	ok := after >= 0 && before-after == borrowed && borrowed <= before
	if ok {
		fmt.Println("Quantity never went negative and every successful borrow took exactly one copy.")
	} else {
		fmt.Println("[VIOLATION] quantity and successful borrows do not add up.")
	}

	if failures > 0 || !ok {
		os.Exit(1)
	}
}

// attemptBorrow sends POST /books/{bookID}/borrow for the given patron name.
func attemptBorrow(client *http.Client, serverAddr, bookID, token, patron string) borrowResult {
	body, _ := json.Marshal(map[string]string{"patron_name": patron})
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/books/%s/borrow", serverAddr, bookID), bytes.NewReader(body))
	if err != nil {
		return borrowResult{Patron: patron, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Patron: patron, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return borrowResult{Patron: patron, StatusCode: resp.StatusCode}
}

func bookQuantity(client *http.Client, serverAddr, bookID, token string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/books/%s", serverAddr, bookID), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	var book struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(raw, &book); err != nil {
		return 0, fmt.Errorf("bad JSON: %s", raw)
	}
	return book.Quantity, nil
}
