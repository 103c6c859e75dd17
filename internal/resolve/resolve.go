// Package resolve maps raw contact identifiers and group thread keys to
// display names, consulting the persistent mapping store first and an
// optional contact-directory oracle for whatever the store cannot answer.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Napageneral/transcript/internal/mapping"
	"github.com/Napageneral/transcript/internal/oracle"
)

// maxSynthesizedNames caps how many participant names go into a
// synthesized group display name before the "+N more" suffix takes over.
const maxSynthesizedNames = 4

// Resolver answers name lookups for one run. Not safe for concurrent use;
// the parallel oracle sweep serializes its store writes after the lookup
// phase completes.
type Resolver struct {
	store  *mapping.Store
	oracle oracle.Oracle
}

// New builds a resolver over the given store. A nil oracle disables
// external enrichment.
func New(store *mapping.Store, o oracle.Oracle) *Resolver {
	if o == nil {
		o = oracle.Noop{}
	}
	return &Resolver{store: store, oracle: o}
}

// Individual resolves a raw identifier to a display name using the store
// alone: direct key first, then the generated variants.
func (r *Resolver) Individual(identifier string) (string, bool) {
	if identifier == "" {
		return "", false
	}
	return r.store.LookupName(identifier)
}

// Group resolves a group thread key: an explicit stored display name wins,
// else a name is synthesized from the resolved participants. Zero resolved
// participants means unresolved.
func (r *Resolver) Group(chatKey string) (string, bool) {
	g, ok := r.store.LookupGroup(chatKey)
	if !ok {
		return "", false
	}
	if g.DisplayName != "" {
		return g.DisplayName, true
	}
	if g.ResolvedDisplayName != "" {
		return g.ResolvedDisplayName, true
	}

	name := r.SynthesizeGroupName(g.Participants)
	if name == "" {
		return "", false
	}
	return name, true
}

// GroupInfo exposes the stored entry for a group thread key so callers can
// attach participant lists to assembled contacts.
func (r *Resolver) GroupInfo(chatKey string) (mapping.GroupChat, bool) {
	return r.store.LookupGroup(chatKey)
}

// SynthesizeGroupName builds a display name from participant identifiers:
// up to four resolved names comma-joined, with a "+N more" suffix counting
// the resolved overflow. Unresolvable participants are skipped.
func (r *Resolver) SynthesizeGroupName(participants []string) string {
	var names []string
	for _, p := range participants {
		if name, ok := r.Individual(p); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}

	shown := names
	if len(shown) > maxSynthesizedNames {
		shown = shown[:maxSynthesizedNames]
	}
	out := strings.Join(shown, ", ")
	if len(names) > maxSynthesizedNames {
		out += fmt.Sprintf(" +%d more", len(names)-maxSynthesizedNames)
	}
	return out
}

// WithOracle resolves an individual identifier, falling through to the
// oracle when the store has no answer. A hit is written back under every
// variant so the oracle is never asked twice for the same identifier.
func (r *Resolver) WithOracle(ctx context.Context, identifier string) (string, bool) {
	if name, ok := r.Individual(identifier); ok {
		return name, true
	}
	name, ok := r.oracle.Lookup(ctx, identifier)
	if !ok {
		return "", false
	}
	r.store.LearnName(identifier, name)
	return name, true
}

// Sweep resolves a batch of identifiers through the oracle using a bounded
// worker pool. Lookups run in parallel; results are written back into the
// store serially once every worker has finished, so the store sees no
// concurrent writes. Returns identifier -> name for the hits.
func (r *Resolver) Sweep(ctx context.Context, identifiers []string, workers int) map[string]string {
	if workers <= 0 {
		workers = 4
	}

	type hit struct {
		identifier string
		name       string
	}

	jobs := make(chan string)
	results := make(chan hit)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					continue // keep draining so the producer can finish
				}
				if _, ok := r.store.LookupName(id); ok {
					continue
				}
				if name, ok := r.oracle.Lookup(ctx, id); ok {
					results <- hit{identifier: id, name: name}
				}
			}
		}()
	}

	go func() {
		for _, id := range identifiers {
			jobs <- id
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	resolved := make(map[string]string)
	for h := range results {
		resolved[h.identifier] = h.name
	}

	// Serial write-back phase.
	for id, name := range resolved {
		r.store.LearnName(id, name)
	}
	return resolved
}
