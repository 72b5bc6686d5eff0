package chat

import (
	"slices"

	"github.com/johndosdos/tripchat/internal/model"
)

// DateGroup is one date bucket of the rendered history.
type DateGroup struct {
	Date     string
	Messages []model.ChatMessage
}

// GroupByDate partitions messages by date. Groups keep the order in which
// their date first appears in messages; each group is ordered by timestamp,
// ties keeping input order. messages is not modified.
func GroupByDate(messages []model.ChatMessage) []DateGroup {
	var groups []DateGroup
	index := make(map[string]int)

	for _, m := range messages {
		key := m.Date()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{Date: key})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Messages, func(a, b model.ChatMessage) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	}

	return groups
}
