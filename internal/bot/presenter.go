package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

const (
	detailColor       = 0x009688
	defaultFooterText = "매드라이너 택배 정보"
	defaultFooterIcon = "https://cdn.discordapp.com/avatars/761122456181538827/d05e24447e218561f0c3a9bd79b8a6d2.png?size=128"

	// Discord caps an embed at 25 fields; two are taken by sender and recipient.
	maxEmbedFields    = 25
	maxProgressFields = maxEmbedFields - 2
	maxFieldName      = 256
	maxFieldValue     = 1024
)

var kst = time.FixedZone("KST", 9*60*60)

// Presenter renders lookups for the chat surface.
type Presenter struct {
	FooterText string
	FooterIcon string
	Now        func() time.Time
}

// Start is posted before the fan-out begins.
func (p Presenter) Start(carriers int) string {
	return fmt.Sprintf("📦 %d개 택배사를 조회할거에요. 잠깐 기다려주세요!", carriers)
}

// Progress replaces the start message while a carrier is being queried.
func (p Presenter) Progress(carrierName string) string {
	return fmt.Sprintf("🔎 지금 `%s`에서 조회하고 있어요!", carrierName)
}

// Summary lists every result with the marker the user reacts with to open it.
func (p Presenter) Summary(lookup parcel.Lookup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %d개 택배사 중에 %d개를 발견했어요!", lookup.Queried, len(lookup.Results))
	if len(lookup.Results) == 0 {
		return b.String()
	}
	b.WriteString("\n아래 버튼을 눌러 해당 택배사의 결과를 조회하세요!\n\n")
	for i, result := range lookup.Results {
		marker, ok := parcel.MarkerFor(i + 1)
		if !ok {
			break
		}
		fmt.Fprintf(&b, "%s %s\n", marker.Emoji, result.Carrier.DisplayName())
	}
	return b.String()
}

// Throttled is sent when a user exceeds the command rate.
func (p Presenter) Throttled(retryAfter time.Duration) string {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("⏳ 조회 요청이 너무 많아요. %d초 후에 다시 시도해주세요!", secs)
}

// Detail renders one result with its full progress timeline. When the
// timeline does not fit the embed, the most recent entries are kept.
func (p Presenter) Detail(result tracker.TrackingResult) *discordgo.MessageEmbed {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	footerText := p.FooterText
	if footerText == "" {
		footerText = defaultFooterText
	}
	footerIcon := p.FooterIcon
	if footerIcon == "" {
		footerIcon = defaultFooterIcon
	}

	progresses := result.Progresses
	if len(progresses) > maxProgressFields {
		progresses = progresses[len(progresses)-maxProgressFields:]
	}
	fields := make([]*discordgo.MessageEmbedField, 0, 2+len(progresses))
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "보내신 분", Value: orDash(result.From.Name), Inline: true},
		&discordgo.MessageEmbedField{Name: "받는 분", Value: orDash(result.To.Name), Inline: true},
	)
	for _, entry := range progresses {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  truncate(orDash(entry.Location.Name), maxFieldName),
			Value: truncate(fmt.Sprintf("%s | %s", orDash(entry.Status.Text), koreanDateTime(entry.Time.Time)), maxFieldValue),
		})
	}

	return &discordgo.MessageEmbed{
		Color:       detailColor,
		Title:       fmt.Sprintf("%s 조회 결과", result.Carrier.DisplayName()),
		Description: fmt.Sprintf("현재 상태: %s", orDash(result.State.Text)),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText, IconURL: footerIcon},
		Timestamp:   now().Format(time.RFC3339),
		Fields:      fields,
	}
}

// koreanDateTime formats t like "2020년 10월 5일 오후 3:04" in Korea time.
func koreanDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.In(kst)
	meridiem := "오전"
	if t.Hour() >= 12 {
		meridiem = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d년 %d월 %d일 %s %d:%02d", t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
