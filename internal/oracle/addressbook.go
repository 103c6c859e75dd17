package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Napageneral/transcript/internal/phone"
)

// AddressBook resolves names by reading the macOS Contacts sqlite store
// directly. Much cheaper than AppleScript but the database layout is
// version-dependent, so any query failure is treated as no match.
type AddressBook struct {
	db *sql.DB
}

// addressBookSearchDirs are the known homes of AddressBook-v22.abcddb
// across macOS versions.
var addressBookSearchDirs = []string{
	"Library/Application Support/AddressBook",
	"Library/Application Support/Contacts",
	"Library/Containers/com.apple.Contacts",
}

// FindAddressBookPath locates a Contacts database under the user's home
// directory, or returns "" when none exists.
func FindAddressBookPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	for _, dir := range addressBookSearchDirs {
		root := filepath.Join(home, dir)
		var found string
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".abcddb") {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// OpenAddressBook opens the Contacts database read-only.
func OpenAddressBook(path string) (*AddressBook, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open address book: %w", err)
	}
	return &AddressBook{db: db}, nil
}

func (a *AddressBook) Close() error {
	return a.db.Close()
}

// Lookup matches the identifier against stored phone numbers, trying the
// full canonical digits, then the last 10, then the last 7. The stored
// numbers carry arbitrary punctuation, stripped in SQL before the match.
func (a *AddressBook) Lookup(ctx context.Context, identifier string) (string, bool) {
	digits := phone.Normalize(identifier)
	if digits == "" {
		return "", false
	}

	candidates := []string{digits}
	if len(digits) >= 10 {
		candidates = append(candidates, digits[len(digits)-10:])
	}
	if len(digits) >= 7 {
		candidates = append(candidates, digits[len(digits)-7:])
	}

	const query = `
		SELECT DISTINCT
			TRIM(COALESCE(p.ZFIRSTNAME, '') || ' ' || COALESCE(p.ZLASTNAME, '')) AS name
		FROM ZABCDPHONENUMBER pn
		JOIN ZABCDRECORD p ON pn.ZOWNER = p.Z_PK
		WHERE REPLACE(REPLACE(REPLACE(REPLACE(pn.ZFULLNUMBER, ' ', ''), '-', ''), '(', ''), ')', '') LIKE ?
		LIMIT 1
	`

	for _, cand := range candidates {
		var name string
		err := a.db.QueryRowContext(ctx, query, "%"+cand+"%").Scan(&name)
		if err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		if name != "" {
			return name, true
		}
	}
	return "", false
}
