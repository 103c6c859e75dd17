package oracle

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// AppleScript asks the Contacts app for a person whose phone or email
// contains the identifier. Accurate but slow (one osascript round-trip per
// lookup), so it sits behind the AddressBook oracle in the chain.
type AppleScript struct {
	// Timeout bounds one osascript invocation. Zero means 5 seconds.
	Timeout time.Duration
}

const contactsScript = `
on run
	tell application "Contacts"
		set foundPeople to {}
		try
			set foundPeople to foundPeople & (every person whose value of every phone contains "%s")
		end try
		try
			set foundPeople to foundPeople & (every person whose value of every email contains "%s")
		end try
		if (count of foundPeople) > 0 then
			set thePerson to item 1 of foundPeople
			set firstName to first name of thePerson
			set lastName to last name of thePerson
			if firstName is missing value then set firstName to ""
			if lastName is missing value then set lastName to ""
			if firstName is not "" and lastName is not "" then
				return firstName & " " & lastName
			else if firstName is not "" then
				return firstName
			else if lastName is not "" then
				return lastName
			else
				return ""
			end if
		else
			return ""
		end if
	end tell
end run
`

func (a AppleScript) Lookup(ctx context.Context, identifier string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.ContainsAny(identifier, `"\`) {
		return "", false
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script := fmt.Sprintf(contactsScript, identifier, identifier)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", false
	}

	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", false
	}
	return name, true
}
