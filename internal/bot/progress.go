package bot

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

// progressReporter narrates the fan-out by editing one status message. The
// aggregator hands it every carrier as its lookup starts; edits run on a
// separate goroutine, at most one per interval, always showing the latest
// carrier. Report never blocks the lookup.
type progressReporter struct {
	msgr      Messenger
	channelID string
	messageID string
	render    func(string) string
	interval  time.Duration
	logger    zerolog.Logger

	latest chan string
	stop   chan struct{}
	done   chan struct{}
}

func startProgress(msgr Messenger, channelID, messageID string, render func(string) string, interval time.Duration, logger zerolog.Logger) *progressReporter {
	r := &progressReporter{
		msgr:      msgr,
		channelID: channelID,
		messageID: messageID,
		render:    render,
		interval:  interval,
		logger:    logger,
		latest:    make(chan string, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Report records carrier as the one currently being queried.
func (r *progressReporter) Report(carrier tracker.Carrier) {
	name := carrier.DisplayName()
	for {
		select {
		case r.latest <- name:
			return
		default:
			select {
			case <-r.latest:
			default:
			}
		}
	}
}

// Stop halts editing and waits for an in-flight edit to finish.
func (r *progressReporter) Stop() {
	close(r.stop)
	<-r.done
}

func (r *progressReporter) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case name := <-r.latest:
			if _, err := r.msgr.ChannelMessageEdit(r.channelID, r.messageID, r.render(name)); err != nil {
				r.logger.Debug().Err(err).Msg("edit progress message")
			}
		}
		if r.interval <= 0 {
			continue
		}
		timer := time.NewTimer(r.interval)
		select {
		case <-r.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
