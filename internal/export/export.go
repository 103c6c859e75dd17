// Package export orchestrates extraction runs: full, incremental, and
// contacts-only. Each run is a discrete batch cycle over chat.db that ends
// with one atomic snapshot write and one atomic mapping-store write.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Napageneral/transcript/internal/assemble"
	"github.com/Napageneral/transcript/internal/chatdb"
	"github.com/Napageneral/transcript/internal/dataset"
	"github.com/Napageneral/transcript/internal/mapping"
	"github.com/Napageneral/transcript/internal/merge"
	"github.com/Napageneral/transcript/internal/oracle"
	"github.com/Napageneral/transcript/internal/phone"
	"github.com/Napageneral/transcript/internal/resolve"
	"github.com/Napageneral/transcript/internal/stats"
)

// Options configures one run. Paths are required; everything else has a
// usable zero value.
type Options struct {
	ChatDBPath   string
	DatasetPath  string
	MappingsPath string

	MessageLimit int // full-run row cap
	UpdateLimit  int // incremental-run row cap

	Oracle       oracle.Oracle // nil disables enrichment
	SweepLimit   int           // max identifiers per oracle sweep
	SweepWorkers int

	Logf func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.MessageLimit <= 0 {
		o.MessageLimit = 500000
	}
	if o.UpdateLimit <= 0 {
		o.UpdateLimit = 10000
	}
	if o.SweepLimit <= 0 {
		o.SweepLimit = 100
	}
	if o.SweepWorkers <= 0 {
		o.SweepWorkers = 4
	}
	if o.Logf == nil {
		o.Logf = func(string, ...any) {}
	}
	return o
}

// Result summarizes a completed run.
type Result struct {
	RunID         string        `json:"run_id"`
	Mode          string        `json:"mode"`
	TotalMessages int           `json:"total_messages"`
	NewMessages   int           `json:"new_messages"`
	Contacts      int           `json:"contacts"`
	Resolved      int           `json:"resolved"`
	Duration      time.Duration `json:"duration"`
}

// Full extracts everything from scratch and replaces the snapshot.
func Full(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	res := Result{RunID: uuid.New().String(), Mode: "full"}
	opts.Logf("run %s: full export", res.RunID)

	store := mapping.Load(opts.MappingsPath)
	opts.Logf("  loaded %d phone mappings, %d group chats", len(store.PhoneToName), len(store.GroupChats))
	resolver := resolve.New(store, opts.Oracle)

	db, err := chatdb.Open(opts.ChatDBPath)
	if err != nil {
		return res, err
	}
	defer db.Close()

	if err := harvestGroups(ctx, db, store, resolver, opts.Logf); err != nil {
		return res, err
	}

	rows, err := db.QueryMessages(ctx, opts.MessageLimit, "")
	if err != nil {
		return res, err
	}
	opts.Logf("  found %d message rows", len(rows))

	d := assemble.New(resolver).Assemble(rows)
	opts.Logf("  assembled %d messages across %d contacts", len(d.Messages), len(d.Contacts))

	learned := harvestNames(d, store)
	if learned > 0 {
		opts.Logf("  learned %d new contact mappings", learned)
	}

	res.Resolved = sweepUnresolved(ctx, d, store, resolver, opts)

	d.Statistics = stats.Compute(d.Messages, d.Contacts)

	if err := store.Save(opts.MappingsPath); err != nil {
		return res, err
	}
	if err := d.Save(opts.DatasetPath); err != nil {
		return res, err
	}

	res.TotalMessages = len(d.Messages)
	res.NewMessages = len(d.Messages)
	res.Contacts = len(d.Contacts)
	res.Duration = time.Since(start)
	return res, nil
}

// Update extracts only messages newer than the prior snapshot and merges
// them in. A missing or unreadable prior snapshot degrades to a full run.
func Update(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	prior, err := dataset.Load(opts.DatasetPath)
	if err != nil {
		opts.Logf("no usable prior snapshot (%v), running full export", err)
		return Full(ctx, opts)
	}

	res := Result{RunID: uuid.New().String(), Mode: "update"}
	opts.Logf("run %s: incremental update", res.RunID)

	store := mapping.Load(opts.MappingsPath)
	resolver := resolve.New(store, opts.Oracle)

	db, err := chatdb.Open(opts.ChatDBPath)
	if err != nil {
		return res, err
	}
	defer db.Close()

	since := prior.LatestMessageDate()
	if since != "" {
		opts.Logf("  last message date: %s", since)
	}

	rows, err := db.QueryMessages(ctx, opts.UpdateLimit, since)
	if err != nil {
		return res, err
	}

	fresh := assemble.New(resolver).Assemble(rows)
	if len(fresh.Messages) == 0 {
		opts.Logf("  no new messages")
		res.TotalMessages = len(prior.Messages)
		res.Contacts = len(prior.Contacts)
		res.Duration = time.Since(start)
		return res, nil
	}

	merged := merge.Merge(prior, fresh)
	res.NewMessages = len(merged.Messages) - len(prior.Messages)
	opts.Logf("  merged %d new messages", res.NewMessages)

	harvestNames(merged, store)
	res.Resolved = sweepUnresolved(ctx, merged, store, resolver, opts)

	if err := store.Save(opts.MappingsPath); err != nil {
		return res, err
	}
	if err := merged.Save(opts.DatasetPath); err != nil {
		return res, err
	}

	res.TotalMessages = len(merged.Messages)
	res.Contacts = len(merged.Contacts)
	res.Duration = time.Since(start)
	return res, nil
}

// Contacts re-resolves display names in the existing snapshot without
// touching the message set.
func Contacts(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	res := Result{RunID: uuid.New().String(), Mode: "contacts"}

	d, err := dataset.Load(opts.DatasetPath)
	if err != nil {
		return res, fmt.Errorf("no snapshot to update (run a full export first): %w", err)
	}

	store := mapping.Load(opts.MappingsPath)
	resolver := resolve.New(store, opts.Oracle)

	res.Resolved = sweepUnresolved(ctx, d, store, resolver, opts)
	opts.Logf("  resolved %d contacts", res.Resolved)

	if res.Resolved > 0 {
		if err := store.Save(opts.MappingsPath); err != nil {
			return res, err
		}
		if err := d.Save(opts.DatasetPath); err != nil {
			return res, err
		}
	}

	res.TotalMessages = len(d.Messages)
	res.Contacts = len(d.Contacts)
	res.Duration = time.Since(start)
	return res, nil
}

// harvestGroups pulls group threads and their participants out of chat.db
// into the mapping store, synthesizing display names for the nameless ones.
func harvestGroups(ctx context.Context, db *chatdb.DB, store *mapping.Store, resolver *resolve.Resolver, logf func(string, ...any)) error {
	groups, err := db.QueryGroupChats(ctx)
	if err != nil {
		return err
	}
	for chatKey, info := range groups {
		entry := mapping.GroupChat{
			DisplayName:  info.DisplayName,
			Participants: info.Participants,
		}
		if entry.DisplayName == "" {
			entry.ResolvedDisplayName = resolver.SynthesizeGroupName(info.Participants)
		}
		store.SetGroup(chatKey, entry)
	}
	logf("  found %d group chats", len(groups))
	return nil
}

// harvestNames learns resolved individual names back into the store so the
// next run starts from them. Names that still look like raw identifiers
// (phone, email, chat key) carry no information and are skipped.
func harvestNames(d *dataset.Dataset, store *mapping.Store) int {
	learned := 0
	for _, c := range d.Contacts {
		if c.IsGroupChat || c.Phone == "" {
			continue
		}
		if !looksResolved(c.Name) {
			continue
		}
		if _, ok := store.LookupName(c.Phone); ok {
			continue
		}
		store.LearnName(c.Phone, c.Name)
		learned++
	}
	return learned
}

// sweepUnresolved pushes still-unresolved identifiers through the oracle
// and rewrites the matching contact names in place.
func sweepUnresolved(ctx context.Context, d *dataset.Dataset, store *mapping.Store, resolver *resolve.Resolver, opts Options) int {
	if opts.Oracle == nil {
		return 0
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, c := range d.Contacts {
		if c.IsGroupChat || c.Phone == "" || looksResolved(c.Name) {
			continue
		}
		if _, dup := seen[c.Phone]; dup {
			continue
		}
		seen[c.Phone] = struct{}{}
		ids = append(ids, c.Phone)
	}
	if len(ids) == 0 {
		return 0
	}
	if len(ids) > opts.SweepLimit {
		ids = ids[:opts.SweepLimit]
	}
	opts.Logf("  resolving %d unresolved contacts", len(ids))

	resolved := resolver.Sweep(ctx, ids, opts.SweepWorkers)
	if len(resolved) == 0 {
		return 0
	}

	byDigits := make(map[string]string, len(resolved))
	for id, name := range resolved {
		if digits := phone.Normalize(id); digits != "" {
			byDigits[digits] = name
		}
	}
	for i := range d.Contacts {
		c := &d.Contacts[i]
		if c.IsGroupChat {
			continue
		}
		if name, ok := resolved[c.Phone]; ok {
			c.Name = name
			continue
		}
		if digits := phone.Normalize(c.Phone); digits != "" {
			if name, ok := byDigits[digits]; ok {
				c.Name = name
			}
		}
	}
	return len(resolved)
}

// looksResolved reports whether a display name is a real name rather than
// a raw phone number, email, or group-chat key.
func looksResolved(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "chat") || strings.Contains(name, "@") {
		return false
	}
	return !phone.LooksLikePhone(name)
}
