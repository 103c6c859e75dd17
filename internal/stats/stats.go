// Package stats derives summary metrics from a message set. Pure
// aggregation: no I/O, no state.
package stats

import (
	"time"

	"github.com/Napageneral/transcript/internal/dataset"
)

// dateLayout matches the localtime ISO form emitted by the chat.db query.
const dateLayout = "2006-01-02 15:04:05"

// Compute aggregates counts, the sent/received split, a 24-bucket
// hour-of-day histogram, the date range, and average content length.
// Unparsable timestamps are skipped; an empty message list yields zeroes.
func Compute(messages []dataset.Message, contacts []dataset.Contact) dataset.Statistics {
	s := dataset.Statistics{
		TotalMessages:  len(messages),
		UniqueContacts: len(contacts),
	}

	var totalLen int
	var counted int
	for _, m := range messages {
		if m.IsFromMe {
			s.MessagesSent++
		}

		if t, err := time.Parse(dateLayout, m.Date); err == nil {
			s.HourlyDistribution[t.Hour()]++
		}

		if m.Date != "" {
			if s.DateRange.Start == "" || m.Date < s.DateRange.Start {
				s.DateRange.Start = m.Date
			}
			if m.Date > s.DateRange.End {
				s.DateRange.End = m.Date
			}
		}

		if m.Content != "" {
			totalLen += len(m.Content)
			counted++
		}
	}
	s.MessagesReceived = s.TotalMessages - s.MessagesSent

	if counted > 0 {
		s.AvgMessageLength = float64(totalLen) / float64(counted)
	}

	return s
}
