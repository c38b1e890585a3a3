package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adrinerDP/madrinerbot/internal/obs"
	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

const commandParcel = "parcel"

// Messenger is the subset of the Discord session the bot writes through.
// *discordgo.Session satisfies it.
type Messenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Lookups is the parcel workflow the handler drives.
type Lookups interface {
	Snapshot() []tracker.Carrier
	Lookup(ctx context.Context, userID, trackingID string, carriers []tracker.Carrier, progress parcel.ProgressFunc) parcel.Lookup
	Select(ctx context.Context, userID, token string) (tracker.TrackingResult, error)
}

// CommandLimiter throttles commands per user.
type CommandLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// Message is an incoming chat message.
type Message struct {
	ChannelID string
	AuthorID  string
	AuthorTag string
	Content   string
}

// Reaction is a reaction a user added to some message.
type Reaction struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// Handler dispatches chat commands and reactions.
type Handler struct {
	Prefix           string
	Lookups          Lookups
	Limiter          CommandLimiter
	Presenter        Presenter
	ProgressInterval time.Duration
	Logger           zerolog.Logger
}

// Register installs the Discord event handlers on s. Handlers derive their
// contexts from ctx. The returned func removes them.
func (h *Handler) Register(ctx context.Context, s *discordgo.Session) func() {
	removers := []func(){
		s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			h.Logger.Info().Str("user", r.User.String()).Int("guilds", len(r.Guilds)).Msg("bot_ready")
		}),
		s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			if m.Author == nil || m.Author.Bot {
				return
			}
			h.HandleMessage(ctx, s, Message{
				ChannelID: m.ChannelID,
				AuthorID:  m.Author.ID,
				AuthorTag: m.Author.String(),
				Content:   m.Content,
			})
		}),
		s.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
			if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
				return
			}
			if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
				return
			}
			h.HandleReaction(ctx, s, Reaction{
				ChannelID: r.ChannelID,
				MessageID: r.MessageID,
				UserID:    r.UserID,
				Emoji:     r.Emoji.Name,
			})
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// HandleMessage runs a prefixed command. Messages without the prefix and
// unknown commands are ignored.
func (h *Handler) HandleMessage(ctx context.Context, msgr Messenger, msg Message) {
	if h.Prefix == "" || !strings.HasPrefix(msg.Content, h.Prefix) {
		return
	}
	args := strings.Fields(msg.Content[len(h.Prefix):])
	if len(args) == 0 {
		return
	}
	switch strings.ToLower(args[0]) {
	case commandParcel:
		trackingID := ""
		if len(args) > 1 {
			trackingID = args[1]
		}
		h.parcel(ctx, msgr, msg, trackingID)
	}
}

func (h *Handler) parcel(ctx context.Context, msgr Messenger, msg Message, trackingID string) {
	requestID := uuid.NewString()
	logger := h.Logger.With().
		Str("request_id", requestID).
		Str("user", msg.AuthorTag).
		Str("tracking_id", trackingID).
		Logger()
	ctx = obs.WithCommandID(logger.WithContext(ctx), requestID)

	if h.Limiter != nil {
		allowed, retryAfter, err := h.Limiter.Allow(ctx, msg.AuthorID)
		if err != nil {
			logger.Warn().Err(err).Msg("command rate limiter unavailable")
		} else if !allowed {
			obs.CountCommand(commandParcel, "throttled")
			if _, err := msgr.ChannelMessageSend(msg.ChannelID, h.Presenter.Throttled(retryAfter)); err != nil {
				logger.Warn().Err(err).Msg("send throttle notice")
			}
			return
		}
	}

	carriers := h.Lookups.Snapshot()
	logger.Info().Int("carriers", len(carriers)).Msg("parcel_lookup_started")

	var progress parcel.ProgressFunc
	status, err := msgr.ChannelMessageSend(msg.ChannelID, h.Presenter.Start(len(carriers)))
	if err != nil {
		logger.Warn().Err(err).Msg("send start message")
	}
	var reporter *progressReporter
	if status != nil {
		reporter = startProgress(msgr, msg.ChannelID, status.ID, h.Presenter.Progress, h.ProgressInterval, logger)
		progress = reporter.Report
	}

	lookup := h.Lookups.Lookup(ctx, msg.AuthorID, trackingID, carriers, progress)

	if reporter != nil {
		reporter.Stop()
		if err := msgr.ChannelMessageDelete(msg.ChannelID, status.ID); err != nil {
			logger.Debug().Err(err).Msg("delete start message")
		}
	}

	summary, err := msgr.ChannelMessageSend(msg.ChannelID, h.Presenter.Summary(lookup))
	if err != nil {
		obs.CountCommand(commandParcel, "send_failed")
		logger.Error().Err(err).Msg("send summary")
		return
	}
	for i := range lookup.Results {
		marker, ok := parcel.MarkerFor(i + 1)
		if !ok {
			break
		}
		if err := msgr.MessageReactionAdd(msg.ChannelID, summary.ID, marker.Emoji); err != nil {
			logger.Warn().Err(err).Int("ordinal", marker.Ordinal).Msg("add selection reaction")
		}
	}
	obs.CountCommand(commandParcel, "ok")
	logger.Info().Int("found", len(lookup.Results)).Msg("parcel_lookup_completed")
}

// HandleReaction shows the detail view for the result the reaction selects.
// Reactions that cannot be resolved are ignored without a reply.
func (h *Handler) HandleReaction(ctx context.Context, msgr Messenger, reaction Reaction) {
	result, err := h.Lookups.Select(ctx, reaction.UserID, reaction.Emoji)
	if err != nil {
		obs.CountSelection("unresolvable")
		evt := h.Logger.Debug()
		if !errors.Is(err, parcel.ErrUnresolvable) {
			evt = h.Logger.Warn()
		}
		evt.Err(err).Str("user_id", reaction.UserID).Str("emoji", reaction.Emoji).Msg("parcel_selection")
		return
	}
	obs.CountSelection("resolved")
	h.Logger.Debug().Str("user_id", reaction.UserID).Str("carrier_id", result.Carrier.ID).Msg("parcel_selection")
	if _, err := msgr.ChannelMessageSendEmbed(reaction.ChannelID, h.Presenter.Detail(result)); err != nil {
		h.Logger.Warn().Err(err).Str("user_id", reaction.UserID).Msg("send parcel detail")
	}
}
