// Command hashpw prints a bcrypt hash for use in LIBRARY_ACCOUNTS.
//
// Usage:
//
//	go run ./cmd/hashpw <password>
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Vinodvinum/LibraryManagement/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("Usage: hashpw <password>")
	}
	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
