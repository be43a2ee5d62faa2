// Package chat measures project chat volume and participation over
// trailing time windows.
package chat

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joescharf/pulse/internal/models"
)

const topMembers = 3

// MemberActivity is one roster member's message count in a window.
type MemberActivity struct {
	Member       string `json:"member"`
	MessageCount int    `json:"messageCount"`
}

// Stats are the window-level numbers.
type Stats struct {
	WindowDays           int     `json:"windowDays"`
	TotalMessages        int     `json:"totalMessages"`
	AverageMessageLength int     `json:"averageMessageLength"`
	MessagesPerDay       float64 `json:"messagesPerDay"`
	TotalProjectMembers  int     `json:"totalProjectMembers"`
	ActiveMembers        int     `json:"activeMembers"`
	ActivityRate         int     `json:"activityRate"` // percent of roster with at least one message
}

// Summary is the chat activity analysis of a single window.
type Summary struct {
	Stats             Stats            `json:"summary"`
	TopActiveMembers  []MemberActivity `json:"topActiveMembers"`
	LeastActiveMember *MemberActivity  `json:"leastActiveMember,omitempty"`
	Insights          []string         `json:"insights"`
	AllMemberActivity []MemberActivity `json:"allMemberActivity"`
}

// Analyze summarizes the messages sent by roster members during the
// windowDays days ending at now. Messages outside the window, or from senders
// not on the roster, are not counted.
func Analyze(roster []string, messages []*models.Message, windowDays int, now time.Time) *Summary {
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	counts := make(map[string]int, len(roster))
	for _, member := range roster {
		counts[member] = 0
	}

	total, chars := 0, 0
	for _, m := range messages {
		if m == nil || m.Timestamp.Before(since) || m.Timestamp.After(now) {
			continue
		}
		if _, ok := counts[m.Sender]; !ok {
			continue
		}
		counts[m.Sender]++
		total++
		chars += utf8.RuneCountInString(m.Content)
	}

	activity := make([]MemberActivity, 0, len(roster))
	for _, member := range roster {
		activity = append(activity, MemberActivity{Member: member, MessageCount: counts[member]})
	}
	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].MessageCount > activity[j].MessageCount
	})

	s := &Summary{
		Stats: Stats{
			WindowDays:          windowDays,
			TotalMessages:       total,
			TotalProjectMembers: len(roster),
		},
		TopActiveMembers:  []MemberActivity{},
		AllMemberActivity: activity,
	}
	for _, a := range activity {
		if a.MessageCount > 0 {
			s.Stats.ActiveMembers++
			if len(s.TopActiveMembers) < topMembers {
				s.TopActiveMembers = append(s.TopActiveMembers, a)
			}
		}
	}
	if len(activity) > 0 {
		least := activity[len(activity)-1]
		s.LeastActiveMember = &least
	}
	if total > 0 {
		s.Stats.AverageMessageLength = int(math.Round(float64(chars) / float64(total)))
	}
	if windowDays > 0 {
		s.Stats.MessagesPerDay = math.Round(float64(total)/float64(windowDays)*100) / 100
	}
	if len(roster) > 0 {
		s.Stats.ActivityRate = int(math.Round(100 * float64(s.Stats.ActiveMembers) / float64(len(roster))))
	}

	s.Insights = insights(s)
	return s
}

func insights(s *Summary) []string {
	st := s.Stats
	if st.TotalMessages == 0 {
		return []string{fmt.Sprintf("No chat activity in the last %d days. Encourage the team to share progress in the project chat.", st.WindowDays)}
	}

	var out []string
	switch {
	case st.MessagesPerDay < 1:
		out = append(out, fmt.Sprintf("Low communication activity (%.1f messages/day). Consider short daily check-ins.", st.MessagesPerDay))
	case st.MessagesPerDay < 5:
		out = append(out, fmt.Sprintf("Moderate communication activity (%.1f messages/day).", st.MessagesPerDay))
	case st.MessagesPerDay < 20:
		out = append(out, fmt.Sprintf("Good communication activity (%.1f messages/day).", st.MessagesPerDay))
	default:
		out = append(out, fmt.Sprintf("Excellent communication activity (%.1f messages/day).", st.MessagesPerDay))
	}

	switch {
	case st.ActivityRate < 50:
		out = append(out, fmt.Sprintf("Low participation: only %d%% of members posted. Invite quieter members into discussions.", st.ActivityRate))
	case st.ActivityRate < 80:
		out = append(out, fmt.Sprintf("Moderate participation: %d%% of members posted.", st.ActivityRate))
	default:
		out = append(out, fmt.Sprintf("Great participation: %d%% of members posted.", st.ActivityRate))
	}

	if st.MessagesPerDay*7 < 10 {
		out = append(out, "Fewer than 10 messages per week on average. A weekly written status update keeps everyone aligned.")
	}

	var silent []string
	for _, a := range s.AllMemberActivity {
		if a.MessageCount == 0 {
			silent = append(silent, a.Member)
		}
	}
	if len(silent) > 0 {
		out = append(out, fmt.Sprintf("No messages from: %s.", strings.Join(silent, ", ")))
	}
	return out
}
