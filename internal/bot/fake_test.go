package bot_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

var (
	gsPostbox = tracker.Carrier{ID: "kr.cvsnet", Name: "GS Postbox 택배"}
	epost     = tracker.Carrier{ID: "kr.epost", Name: "우체국 택배"}
	cj        = tracker.Carrier{ID: "kr.cjlogistics", Name: "CJ대한통운"}
)

type sentMessage struct {
	ID        string
	ChannelID string
	Content   string
}

// fakeMessenger records every write the handler makes.
type fakeMessenger struct {
	mu        sync.Mutex
	next      int
	sent      []sentMessage
	edits     []string
	deleted   []string
	embeds    []*discordgo.MessageEmbed
	reactions []string
	sendErr   error
}

func (f *fakeMessenger) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.next++
	id := fmt.Sprintf("m%d", f.next)
	f.sent = append(f.sent, sentMessage{ID: id, ChannelID: channelID, Content: content})
	return &discordgo.Message{ID: id, ChannelID: channelID, Content: content}, nil
}

func (f *fakeMessenger) ChannelMessageEdit(channelID, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, content)
	return &discordgo.Message{ID: messageID, ChannelID: channelID, Content: content}, nil
}

func (f *fakeMessenger) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) ChannelMessageSendEmbed(_ string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{}, nil
}

func (f *fakeMessenger) MessageReactionAdd(_, messageID, emoji string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+":"+emoji)
	return nil
}

type fakeOracle struct {
	results map[string]tracker.TrackingResult
}

func (f fakeOracle) Track(_ context.Context, carrierID, _ string) (tracker.TrackingResult, error) {
	if r, ok := f.results[carrierID]; ok {
		return r, nil
	}
	return tracker.TrackingResult{}, tracker.ErrNotFound
}

type staticCarriers []tracker.Carrier

func (s staticCarriers) Carriers() []tracker.Carrier { return append([]tracker.Carrier(nil), s...) }

type memoryStore struct {
	mu   sync.Mutex
	data map[string]parcel.ResultSet
}

func (m *memoryStore) Put(_ context.Context, userID string, results parcel.ResultSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]parcel.ResultSet{}
	}
	m.data[userID] = results
	return nil
}

func (m *memoryStore) Get(_ context.Context, userID string) (parcel.ResultSet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.data[userID]
	return rs, ok, nil
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.retryAfter, s.err
}

func newService(carriers []tracker.Carrier, results map[string]tracker.TrackingResult) *parcel.Service {
	return &parcel.Service{
		Carriers:   staticCarriers(carriers),
		Aggregator: parcel.Aggregator{Oracle: fakeOracle{results: results}, Concurrency: 4},
		Store:      &memoryStore{},
	}
}

func found(c tracker.Carrier, state string) tracker.TrackingResult {
	return tracker.TrackingResult{
		Carrier: c,
		State:   tracker.Status{Text: state},
		From:    tracker.Party{Name: "김*수"},
		To:      tracker.Party{Name: "이*희"},
	}
}
