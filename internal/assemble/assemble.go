// Package assemble turns raw chat.db rows into a typed dataset: decoded
// message content grouped into contacts with resolved display names.
package assemble

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Napageneral/transcript/internal/chatdb"
	"github.com/Napageneral/transcript/internal/dataset"
	"github.com/Napageneral/transcript/internal/phone"
	"github.com/Napageneral/transcript/internal/resolve"
	"github.com/Napageneral/transcript/internal/typedstream"
)

// groupKeyPrefix is the chat.db naming convention for group threads.
const groupKeyPrefix = "chat"

// ContactID derives a stable contact id from the canonical thread key.
// Hashing the key (instead of numbering contacts per run) keeps ids
// identical across extractions, so merged snapshots never have to reconcile
// colliding sequence numbers.
func ContactID(canonicalKey string) int64 {
	h := fnv.New32a()
	h.Write([]byte(canonicalKey))
	return int64(h.Sum32())
}

// Assembler builds datasets from raw rows for a single run.
type Assembler struct {
	resolver *resolve.Resolver
}

func New(resolver *resolve.Resolver) *Assembler {
	return &Assembler{resolver: resolver}
}

// Assemble processes rows in order: decode content, resolve the thread
// identity, group into contacts. Rows without recoverable content are
// dropped entirely rather than emitted as empty messages. Statistics are
// left for the caller to compute over the final message set.
func (a *Assembler) Assemble(rows []chatdb.Row) *dataset.Dataset {
	d := &dataset.Dataset{Images: []json.RawMessage{}}
	byKey := make(map[string]int) // canonical key -> index into d.Contacts

	for _, row := range rows {
		content, ok := rowContent(row)
		if !ok {
			continue
		}

		isGroup := strings.HasPrefix(row.ChatIdentifier, groupKeyPrefix)
		key := contactKey(row, isGroup)

		idx, seen := byKey[key]
		if !seen {
			idx = len(d.Contacts)
			byKey[key] = idx
			d.Contacts = append(d.Contacts, a.newContact(key, row, isGroup))
		} else if isGroup && row.ChatDisplayName != "" && d.Contacts[idx].Name == key {
			// A later row carries the explicit thread name the first
			// sighting lacked.
			d.Contacts[idx].Name = row.ChatDisplayName
		}

		d.Contacts[idx].MessageCount++
		d.Messages = append(d.Messages, dataset.Message{
			ID:        row.MessageID,
			ContactID: d.Contacts[idx].ID,
			Content:   content,
			Date:      row.Date,
			IsFromMe:  row.IsFromMe,
		})
	}

	d.SortContacts()
	return d
}

// rowContent prefers the plain-text column and falls back to decoding the
// attributedBody blob.
func rowContent(row chatdb.Row) (string, bool) {
	if row.HasText {
		return row.Text, true
	}
	return typedstream.Decode(row.AttributedBody)
}

// contactKey picks the grouping key for a row. Group threads key by chat
// identifier even when a handle is present, so every participant's messages
// land in one contact. A row with neither identifier gets a synthetic
// per-message key rather than being dropped.
func contactKey(row chatdb.Row, isGroup bool) string {
	switch {
	case isGroup:
		return row.ChatIdentifier
	case row.HandleID != "":
		return row.HandleID
	case row.ChatIdentifier != "":
		return row.ChatIdentifier
	default:
		return fmt.Sprintf("unknown_%d", row.MessageID)
	}
}

// newContact creates the contact for a key's first sighting, resolving the
// display name with the precedence: explicit source display name, then
// resolver-mapped name, then a cleaned phone form, then the raw identifier.
func (a *Assembler) newContact(key string, row chatdb.Row, isGroup bool) dataset.Contact {
	c := dataset.Contact{
		ID:           ContactID(key),
		CanonicalKey: key,
		Name:         key,
		IsGroupChat:  isGroup,
	}
	if row.HandleID != "" {
		c.Phone = row.HandleID
	} else {
		c.Phone = row.ChatIdentifier
	}

	if isGroup {
		if info, ok := a.resolver.GroupInfo(key); ok && len(info.Participants) > 0 {
			c.Participants = info.Participants
		}
		switch {
		case row.ChatDisplayName != "":
			c.Name = row.ChatDisplayName
		default:
			if mapped, ok := a.resolver.Group(key); ok {
				c.DisplayName = mapped
			}
		}
		return c
	}

	switch {
	case row.ChatDisplayName != "":
		c.Name = row.ChatDisplayName
	default:
		if mapped, ok := a.resolver.Individual(row.HandleID); ok {
			c.Name = mapped
		} else if row.HandleID != "" {
			if phone.LooksLikePhone(row.HandleID) {
				c.Name = phone.CleanDisplay(row.HandleID)
			} else {
				c.Name = row.HandleID
			}
		}
	}
	return c
}
