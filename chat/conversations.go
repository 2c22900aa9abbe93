package chat

import (
	"sort"

	"swiftchat/models"
)

// Aggregate collapses a user's flat message log into one summary per
// counterpart: the most recent message and the count of unread messages
// addressed to the user. The result is sorted by last-message time
// descending, tie-broken by ascending counterpart id so repeated calls over
// the same log are deterministic.
//
// It is a pure function of the message slice; callers fill in counterpart
// user details afterwards.
func Aggregate(userID int64, messages []models.Message) []models.ConversationSummary {
	type group struct {
		last   models.Message
		unread int
	}
	byCounterpart := make(map[int64]*group)

	for _, msg := range messages {
		counterpartID := msg.SenderID
		if msg.SenderID == userID {
			counterpartID = msg.ReceiverID
		}

		g, ok := byCounterpart[counterpartID]
		if !ok {
			g = &group{last: msg}
			byCounterpart[counterpartID] = g
		} else if msg.CreatedAt.After(g.last.CreatedAt) ||
			(msg.CreatedAt.Equal(g.last.CreatedAt) && msg.ID > g.last.ID) {
			g.last = msg
		}

		if msg.ReceiverID == userID && !msg.Read {
			g.unread++
		}
	}

	summaries := make([]models.ConversationSummary, 0, len(byCounterpart))
	for counterpartID, g := range byCounterpart {
		summaries = append(summaries, models.ConversationSummary{
			CounterpartID: counterpartID,
			LastMessage: models.LastMessage{
				Content:   g.last.Content,
				Timestamp: g.last.CreatedAt,
				SenderID:  g.last.SenderID,
			},
			UnreadCount: g.unread,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		ti, tj := summaries[i].LastMessage.Timestamp, summaries[j].LastMessage.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return summaries[i].CounterpartID < summaries[j].CounterpartID
	})
	return summaries
}
