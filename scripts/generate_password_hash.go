//go:build ignore

package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run generate_password_hash.go <password>")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Hash: %s\n", string(hash))
	fmt.Println("\nUse this hash to update the admin_users table directly:")
	fmt.Printf("UPDATE admin_users SET password_hash = '%s' WHERE username = 'admin';\n", string(hash))
}
