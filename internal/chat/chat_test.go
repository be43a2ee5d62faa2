package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pulse/internal/models"
)

var now = time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)

func msgs(sender string, n int, ago time.Duration, content string) []*models.Message {
	out := make([]*models.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.Message{
			ID:        fmt.Sprintf("%s-%d-%d", sender, int(ago.Hours()), i),
			Sender:    sender,
			Content:   content,
			Timestamp: now.Add(-ago),
		})
	}
	return out
}

func TestAnalyze_SingleActiveMember(t *testing.T) {
	roster := []string{"A", "B", "C"}
	messages := msgs("A", 5, 24*time.Hour, "hello")

	s := Analyze(roster, messages, 7, now)

	assert.Equal(t, 5, s.Stats.TotalMessages)
	assert.Equal(t, 33, s.Stats.ActivityRate)
	assert.Equal(t, 1, s.Stats.ActiveMembers)
	assert.Equal(t, 3, s.Stats.TotalProjectMembers)
	assert.Equal(t, 5, s.Stats.AverageMessageLength)
	assert.Equal(t, 0.71, s.Stats.MessagesPerDay)

	require.Len(t, s.TopActiveMembers, 1)
	assert.Equal(t, "A", s.TopActiveMembers[0].Member)

	require.NotNil(t, s.LeastActiveMember)
	assert.Equal(t, 0, s.LeastActiveMember.MessageCount)
	assert.Equal(t, "C", s.LeastActiveMember.Member, "ties keep roster order")
}

func TestAnalyze_NoMessages(t *testing.T) {
	s := Analyze([]string{"A", "B"}, nil, 7, now)

	assert.Equal(t, 0, s.Stats.TotalMessages)
	assert.Equal(t, 0, s.Stats.ActivityRate)
	assert.Equal(t, 0, s.Stats.AverageMessageLength)
	assert.Empty(t, s.TopActiveMembers)
	require.Len(t, s.Insights, 1)
	assert.Contains(t, s.Insights[0], "No chat activity")
	assert.Len(t, s.AllMemberActivity, 2)
}

func TestAnalyze_EmptyRoster(t *testing.T) {
	s := Analyze(nil, msgs("A", 2, time.Hour, "x"), 7, now)

	assert.Equal(t, 0, s.Stats.TotalMessages, "senders outside the roster are not counted")
	assert.Equal(t, 0, s.Stats.ActivityRate)
	assert.Nil(t, s.LeastActiveMember)
}

func TestAnalyze_WindowAndRosterFiltering(t *testing.T) {
	roster := []string{"A", "B"}
	var messages []*models.Message
	messages = append(messages, msgs("A", 2, 2*24*time.Hour, "in window")...)
	messages = append(messages, msgs("A", 3, 8*24*time.Hour, "too old")...)
	messages = append(messages, msgs("B", 1, -time.Hour, "from the future")...)
	messages = append(messages, msgs("Z", 4, time.Hour, "not a member")...)
	messages = append(messages, nil)

	s := Analyze(roster, messages, 7, now)

	assert.Equal(t, 2, s.Stats.TotalMessages)
	assert.Equal(t, 50, s.Stats.ActivityRate)
}

func TestAnalyze_RankingAndTopThree(t *testing.T) {
	roster := []string{"A", "B", "C", "D", "E"}
	var messages []*models.Message
	messages = append(messages, msgs("B", 4, time.Hour, "x")...)
	messages = append(messages, msgs("D", 9, time.Hour, "x")...)
	messages = append(messages, msgs("A", 1, time.Hour, "x")...)
	messages = append(messages, msgs("E", 4, time.Hour, "x")...)

	s := Analyze(roster, messages, 7, now)

	names := func(list []MemberActivity) []string {
		var out []string
		for _, a := range list {
			out = append(out, a.Member)
		}
		return out
	}
	assert.Equal(t, []string{"D", "B", "E"}, names(s.TopActiveMembers))
	assert.Equal(t, []string{"D", "B", "E", "A", "C"}, names(s.AllMemberActivity))
	assert.Equal(t, "C", s.LeastActiveMember.Member)
	assert.Equal(t, 80, s.Stats.ActivityRate)
}

func TestAnalyze_Properties(t *testing.T) {
	roster := []string{"A", "B", "C", "D"}
	var messages []*models.Message
	for i, who := range []string{"A", "B", "C", "X"} {
		messages = append(messages, msgs(who, i*3+1, time.Duration(i*30)*time.Hour, strings.Repeat("m", i+1))...)
	}

	for _, window := range []int{1, 3, 7, 30} {
		s := Analyze(roster, messages, window, now)
		sum := 0
		for _, a := range s.AllMemberActivity {
			sum += a.MessageCount
		}
		assert.Equal(t, s.Stats.TotalMessages, sum, "window %d", window)
		assert.GreaterOrEqual(t, s.Stats.ActivityRate, 0)
		assert.LessOrEqual(t, s.Stats.ActivityRate, 100)
		assert.Equal(t, s, Analyze(roster, messages, window, now), "idempotent for window %d", window)
	}
}

func TestInsights_Bands(t *testing.T) {
	roster := []string{"A", "B"}

	tests := []struct {
		name  string
		count int
		want  string
	}{
		{"low", 3, "Low communication"},
		{"moderate", 14, "Moderate communication"},
		{"good", 70, "Good communication"},
		{"excellent", 140, "Excellent communication"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Analyze(roster, msgs("A", tt.count, time.Hour, "x"), 7, now)
			assert.Contains(t, s.Insights[0], tt.want)
			assert.Contains(t, s.Insights[1], "Moderate participation")
		})
	}
}

func TestInsights_LowVolumeTipAndSilentMembers(t *testing.T) {
	s := Analyze([]string{"A", "B", "C"}, msgs("A", 3, time.Hour, "x"), 7, now)

	joined := strings.Join(s.Insights, "\n")
	assert.Contains(t, joined, "Low participation")
	assert.Contains(t, joined, "Fewer than 10 messages per week")
	assert.Contains(t, joined, "No messages from: B, C.")
}

func TestInsights_FullParticipation(t *testing.T) {
	var messages []*models.Message
	messages = append(messages, msgs("A", 40, time.Hour, "x")...)
	messages = append(messages, msgs("B", 40, time.Hour, "x")...)

	s := Analyze([]string{"A", "B"}, messages, 7, now)

	joined := strings.Join(s.Insights, "\n")
	assert.Contains(t, joined, "Great participation")
	assert.NotContains(t, joined, "Fewer than 10 messages")
	assert.NotContains(t, joined, "No messages from")
}
