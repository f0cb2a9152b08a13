package session

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

type account struct {
	identity model.Identity
	hash     []byte
}

// Directory is the fixed set of login accounts, keyed by lower-cased email.
type Directory struct {
	accounts map[string]account
}

// NewDirectory validates accounts and indexes them by email.
func NewDirectory(accounts []config.Account) (*Directory, error) {
	d := &Directory{accounts: make(map[string]account, len(accounts))}
	for i, a := range accounts {
		role, ok := model.ParseRole(a.Role)
		if !ok {
			return nil, fmt.Errorf("account %d (%s): unknown role %q", i, a.Email, a.Role)
		}
		email := normalizeEmail(a.Email)
		if email == "" || a.PasswordHash == "" {
			return nil, fmt.Errorf("account %d: email and password_hash are required", i)
		}
		if _, dup := d.accounts[email]; dup {
			return nil, fmt.Errorf("account %d: duplicate email %s", i, email)
		}
		id := a.ID
		if id == "" {
			id = email
		}
		d.accounts[email] = account{
			identity: model.Identity{ID: id, Name: a.Name, Email: email, Role: role},
			hash:     []byte(a.PasswordHash),
		}
	}
	return d, nil
}

// DevDirectory returns one account per role, used when no accounts file is
// configured. Passwords are "<role>123".
func DevDirectory() (*Directory, error) {
	var accounts []config.Account
	for _, r := range model.AllRoles {
		name := strings.ToLower(string(r))
		hash, err := bcrypt.GenerateFromPassword([]byte(name+"123"), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash dev password: %w", err)
		}
		accounts = append(accounts, config.Account{
			ID:           "dev-" + name,
			Name:         "Dev " + string(r),
			Email:        name + "@portal.local",
			Role:         string(r),
			PasswordHash: string(hash),
		})
	}
	return NewDirectory(accounts)
}

// Authenticate checks the password for email and returns the account identity.
func (d *Directory) Authenticate(email, password string) (model.Identity, error) {
	a, ok := d.accounts[normalizeEmail(email)]
	if !ok {
		return model.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return model.Identity{}, ErrInvalidCredentials
	}
	return a.identity, nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int { return len(d.accounts) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
