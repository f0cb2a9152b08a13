package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minPasswordLen = 6

func main() {
	var (
		cost  int
		email string
		name  string
		role  string
	)
	flag.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.StringVar(&email, "email", "", "Print a full accounts.yaml entry for this email")
	flag.StringVar(&name, "name", "", "Display name for the entry")
	flag.StringVar(&role, "role", "Student", "Role for the entry (Admin, Teacher, Student)")
	flag.Parse()

	// ─── Read Password ────────────────────────────────────────────────
	password, err := readPassword()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}
	if len(password) < minPasswordLen {
		fmt.Fprintf(os.Stderr, "Error: Password must be at least %d characters\n", minPasswordLen)
		os.Exit(1)
	}

	// ─── Hash ─────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	if email == "" {
		fmt.Println(string(hash))
		return
	}
	if name == "" {
		name = email
	}
	fmt.Printf("  - email: %s\n    name: %q\n    role: %s\n    password_hash: %q\n", email, name, role, string(hash))
}

// readPassword prompts without echo on a terminal and reads one line from
// stdin otherwise, so the tool can be piped in scripts.
func readPassword() (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Enter Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm Password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
