package chat

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/tripchat/internal/model"
)

func msg(id, date, clock string) model.ChatMessage {
	ts, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		panic(err)
	}
	return model.ChatMessage{ID: id, Timestamp: ts, DateKey: date}
}

func ids(messages []model.ChatMessage) []string {
	return lo.Map(messages, func(m model.ChatMessage, _ int) string { return m.ID })
}

func TestGroupByDate_Empty(t *testing.T) {
	assert.Empty(t, GroupByDate(nil))
	assert.Empty(t, GroupByDate([]model.ChatMessage{}))
}

func TestGroupByDate_SingleMessage(t *testing.T) {
	groups := GroupByDate([]model.ChatMessage{msg("a", "2024-01-01", "09:00")})

	require.Len(t, groups, 1)
	assert.Equal(t, "2024-01-01", groups[0].Date)
	assert.Equal(t, []string{"a"}, ids(groups[0].Messages))
}

func TestGroupByDate_TwoDates(t *testing.T) {
	input := []model.ChatMessage{
		msg("nine", "2024-01-01", "09:00"),
		msg("eight", "2024-01-01", "08:00"),
		msg("ten", "2024-01-02", "10:00"),
	}

	groups := GroupByDate(input)

	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01-01", groups[0].Date)
	assert.Equal(t, []string{"eight", "nine"}, ids(groups[0].Messages))
	assert.Equal(t, "2024-01-02", groups[1].Date)
	assert.Equal(t, []string{"ten"}, ids(groups[1].Messages))
}

func TestGroupByDate_GroupsInFirstAppearanceOrder(t *testing.T) {
	input := []model.ChatMessage{
		msg("c", "2024-03-01", "10:00"),
		msg("a", "2024-01-01", "10:00"),
		msg("b", "2024-02-01", "10:00"),
		msg("c2", "2024-03-01", "09:00"),
	}

	groups := GroupByDate(input)

	assert.Equal(t, []string{"2024-03-01", "2024-01-01", "2024-02-01"},
		lo.Map(groups, func(g DateGroup, _ int) string { return g.Date }))
	assert.Equal(t, []string{"c2", "c"}, ids(groups[0].Messages))
}

func TestGroupByDate_EqualTimestampsKeepInputOrder(t *testing.T) {
	input := []model.ChatMessage{
		msg("first", "2024-01-01", "09:00"),
		msg("early", "2024-01-01", "08:00"),
		msg("second", "2024-01-01", "09:00"),
		msg("third", "2024-01-01", "09:00"),
	}

	groups := GroupByDate(input)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"early", "first", "second", "third"}, ids(groups[0].Messages))
}

func TestGroupByDate_DoesNotModifyInput(t *testing.T) {
	input := []model.ChatMessage{
		msg("b", "2024-01-01", "09:00"),
		msg("a", "2024-01-01", "08:00"),
	}

	GroupByDate(input)

	assert.Equal(t, []string{"b", "a"}, ids(input))
}

func TestGroupByDate_FallsBackToTimestampDate(t *testing.T) {
	m := msg("a", "2024-05-06", "07:00")
	m.DateKey = ""

	groups := GroupByDate([]model.ChatMessage{m})

	require.Len(t, groups, 1)
	assert.Equal(t, "2024-05-06", groups[0].Date)
}

func randomMessages(r *rand.Rand, n int) []model.ChatMessage {
	out := make([]model.ChatMessage, n)
	for i := range out {
		day := r.Intn(5) + 1
		date := fmt.Sprintf("2024-01-%02d", day)
		clock := fmt.Sprintf("%02d:%02d", r.Intn(24), r.Intn(4)*15)
		out[i] = msg(fmt.Sprintf("m%d", i), date, clock)
	}
	return out
}

func TestGroupByDate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		input := randomMessages(r, r.Intn(40))

		groups := GroupByDate(input)

		// Idempotence.
		assert.Equal(t, groups, GroupByDate(input))

		// Completeness.
		total := lo.SumBy(groups, func(g DateGroup) int { return len(g.Messages) })
		assert.Equal(t, len(input), total)

		byID := lo.KeyBy(input, func(m model.ChatMessage) string { return m.ID })
		for _, g := range groups {
			for i, m := range g.Messages {
				// Grouping correctness.
				assert.Equal(t, g.Date, byID[m.ID].DateKey)

				// Ordering.
				if i > 0 {
					assert.False(t, g.Messages[i-1].Timestamp.After(m.Timestamp),
						"bucket %s out of order at %d", g.Date, i)
				}
			}
		}

		// Each date appears in exactly one bucket.
		dates := lo.Map(groups, func(g DateGroup, _ int) string { return g.Date })
		assert.Equal(t, lo.Uniq(dates), dates)
	}
}
