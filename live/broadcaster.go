package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Broadcaster is the single fan-out point for live events. It owns the
// per-tournament display settings and the per-scope match timers, and it
// is constructed and injected explicitly: there is no package-level
// instance.
//
// Field-scoped events are delivered through the tournament room like
// everything else; the field room only records membership, which the
// client-side accept rule checks against the event's field id.
type Broadcaster struct {
	hub        *Hub
	logger     *slog.Logger
	retryDelay time.Duration

	mu       sync.Mutex
	displays map[int]DisplaySettings
	timers   map[string]*MatchTimer
}

func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:        hub,
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
		displays:   make(map[int]DisplaySettings),
		timers:     make(map[string]*MatchTimer),
	}
}

func (b *Broadcaster) publish(e *Event, retryOnce bool) {
	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("failed to marshal event", slog.String("type", string(e.Type)), slog.Any("error", err))
		return
	}
	room := TournamentRoom(e.TournamentID)
	if b.hub.RoomSize(room) == 0 {
		if retryOnce {
			// Administrative commands get one delayed retry; by then a
			// display may have finished connecting. Score and timer
			// traffic is dropped instead, a resync follows anyway.
			b.logger.Warn("no subscribers, retrying once", slog.String("room", room), slog.String("type", string(e.Type)))
			time.AfterFunc(b.retryDelay, func() {
				b.hub.BroadcastToRoom(room, data)
			})
		} else {
			b.logger.Debug("no subscribers, dropping event", slog.String("room", room), slog.String("type", string(e.Type)))
		}
		return
	}
	b.hub.BroadcastToRoom(room, data)
}

// SetDisplayMode replaces the tournament's display settings wholesale and
// broadcasts the change. The newest call wins by arrival order; there is
// no timestamp-based reconciliation.
func (b *Broadcaster) SetDisplayMode(tournamentID int, fieldID *int, settings DisplaySettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now()

	b.mu.Lock()
	b.displays[tournamentID] = settings
	b.mu.Unlock()

	b.publish(&Event{
		Type:         EventDisplayModeChange,
		TournamentID: tournamentID,
		FieldID:      fieldID,
		Payload:      &settings,
	}, true)
	return nil
}

// DisplaySettingsFor returns the last display settings set for the
// tournament, for clients pulling state after a (re)connect.
func (b *Broadcaster) DisplaySettingsFor(tournamentID int) (DisplaySettings, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	settings, ok := b.displays[tournamentID]
	return settings, ok
}

// PublishMatchUpdate fans out a partial match patch.
func (b *Broadcaster) PublishMatchUpdate(tournamentID int, fieldID *int, patch MatchPatch) error {
	return b.publishMatchPatch(EventMatchUpdate, tournamentID, fieldID, patch)
}

// PublishMatchState fans out a match status transition.
func (b *Broadcaster) PublishMatchState(tournamentID int, fieldID *int, patch MatchPatch) error {
	return b.publishMatchPatch(EventMatchStateChange, tournamentID, fieldID, patch)
}

func (b *Broadcaster) publishMatchPatch(eventType EventType, tournamentID int, fieldID *int, patch MatchPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	b.publish(&Event{
		Type:         eventType,
		TournamentID: tournamentID,
		FieldID:      fieldID,
		Payload:      &patch,
	}, false)
	return nil
}

// PublishScoreUpdate fans out a live scoresheet patch. Fire-and-forget:
// displays that miss it resync on the next pull.
func (b *Broadcaster) PublishScoreUpdate(tournamentID int, fieldID *int, patch ScorePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	b.publish(&Event{
		Type:         EventScoreUpdate,
		TournamentID: tournamentID,
		FieldID:      fieldID,
		Payload:      &patch,
	}, false)
	return nil
}

// Announce broadcasts a timed overlay message.
func (b *Broadcaster) Announce(tournamentID int, fieldID *int, announcement Announcement) error {
	if err := announcement.Validate(); err != nil {
		return err
	}
	b.publish(&Event{
		Type:         EventAnnouncement,
		TournamentID: tournamentID,
		FieldID:      fieldID,
		Payload:      &announcement,
	}, true)
	return nil
}

func timerKey(tournamentID int, fieldID *int) string {
	if fieldID == nil {
		return TournamentRoom(tournamentID)
	}
	return fmt.Sprintf("%s/%s", TournamentRoom(tournamentID), FieldRoom(*fieldID))
}

// Timer returns the match timer for the given scope, creating it on
// first use. Every state change the timer makes is broadcast as a
// timer_update event.
func (b *Broadcaster) Timer(tournamentID int, fieldID *int) *MatchTimer {
	key := timerKey(tournamentID, fieldID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if timer, ok := b.timers[key]; ok {
		return timer
	}
	timer := NewMatchTimer(func(state TimerState) {
		b.publish(&Event{
			Type:         EventTimerUpdate,
			TournamentID: tournamentID,
			FieldID:      fieldID,
			Payload:      &state,
		}, false)
	})
	b.timers[key] = timer
	return timer
}

func (b *Broadcaster) StartTimer(tournamentID int, fieldID *int, duration time.Duration) {
	b.Timer(tournamentID, fieldID).Start(duration)
}

func (b *Broadcaster) PauseTimer(tournamentID int, fieldID *int) {
	b.Timer(tournamentID, fieldID).Pause()
}

func (b *Broadcaster) ResumeTimer(tournamentID int, fieldID *int) {
	b.Timer(tournamentID, fieldID).Resume()
}

func (b *Broadcaster) ResetTimer(tournamentID int, fieldID *int) {
	b.Timer(tournamentID, fieldID).Reset()
}
