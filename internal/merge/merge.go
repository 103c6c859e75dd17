// Package merge reconciles a freshly assembled dataset with the previous
// snapshot. Running it over overlapping extraction windows is safe: message
// ids dedup against the prior set, contacts match by canonical key, and
// statistics are recomputed from scratch over the merged whole.
package merge

import (
	"encoding/json"

	"github.com/Napageneral/transcript/internal/dataset"
	"github.com/Napageneral/transcript/internal/stats"
)

// Merge combines fresh into prior and returns the merged dataset. Neither
// input is modified. Invariants on the result:
//
//   - every message id appears once; on conflict the prior record wins
//   - genuinely new messages are prepended (most-recent-first order)
//   - contacts are the union by canonical key, message counts recomputed
//   - prior images are preserved (the attachment pipeline owns them)
//   - statistics are recomputed, never carried over from either input
func Merge(prior, fresh *dataset.Dataset) *dataset.Dataset {
	seen := make(map[int64]struct{}, len(prior.Messages))
	for _, m := range prior.Messages {
		seen[m.ID] = struct{}{}
	}

	var newMessages []dataset.Message
	for _, m := range fresh.Messages {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		newMessages = append(newMessages, m)
	}

	merged := &dataset.Dataset{
		Messages: make([]dataset.Message, 0, len(newMessages)+len(prior.Messages)),
	}
	merged.Messages = append(merged.Messages, newMessages...)
	merged.Messages = append(merged.Messages, prior.Messages...)

	// Union contacts by canonical key; prior entries win.
	knownKeys := make(map[string]struct{}, len(prior.Contacts))
	merged.Contacts = append(merged.Contacts, prior.Contacts...)
	for _, c := range prior.Contacts {
		knownKeys[c.CanonicalKey] = struct{}{}
	}
	for _, c := range fresh.Contacts {
		if _, dup := knownKeys[c.CanonicalKey]; dup {
			continue
		}
		knownKeys[c.CanonicalKey] = struct{}{}
		merged.Contacts = append(merged.Contacts, c)
	}

	recountMessages(merged)
	merged.SortContacts()

	merged.Images = prior.Images
	if len(merged.Images) == 0 {
		merged.Images = fresh.Images
	}
	if merged.Images == nil {
		merged.Images = []json.RawMessage{}
	}

	merged.Statistics = stats.Compute(merged.Messages, merged.Contacts)
	if len(merged.Images) > 0 {
		merged.Statistics.TotalImages = len(merged.Images)
	}
	return merged
}

// recountMessages restores the invariant that each contact's messageCount
// equals the number of messages referencing it.
func recountMessages(d *dataset.Dataset) {
	counts := make(map[int64]int, len(d.Contacts))
	for _, m := range d.Messages {
		counts[m.ContactID]++
	}
	for i := range d.Contacts {
		d.Contacts[i].MessageCount = counts[d.Contacts[i].ID]
	}
}
