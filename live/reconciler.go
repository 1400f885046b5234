package live

import (
	"sync"
	"time"

	"github.com/robostage/arena/models"
	"github.com/robostage/arena/swiss"
)

// ScoreForm is the locally edited scoresheet for one alliance, the shape
// an operator's form holds between keystrokes and saves.
type ScoreForm struct {
	AutoPoints    int
	DrivePoints   int
	EndgameBonus  int
	PenaltyPoints int
	TeamCount     int
}

// Total recomputes the alliance total from the form's sub-scores.
func (f ScoreForm) Total() int {
	return totalFromForm(f)
}

// MatchView is the client-held snapshot of the active match.
type MatchView struct {
	MatchID     int
	Status      models.MatchStatus
	MatchNumber int
	RoundNumber int
	StartedAt   *time.Time
	EndedAt     *time.Time
}

// ReconcilerConfig tunes the reconciliation windows. Zero values fall
// back to the defaults.
type ReconcilerConfig struct {
	// ActivityWindow is how long after the operator's last edit incoming
	// score and match-state events for the active match are dropped.
	ActivityWindow time.Duration
	// EchoWindow is how long after sending our own update the server's
	// echo of it is suppressed.
	EchoWindow time.Duration
	// Now is an injectable clock.
	Now func() time.Time
}

const (
	defaultActivityWindow = 3 * time.Second
	defaultEchoWindow     = 2 * time.Second
)

// Reconciler is the state machine of one display or scoring client. It
// merges incoming broadcasts into locally held match, score, timer,
// display and announcement state, protecting in-progress operator edits
// from stale server echoes.
//
// The local timer countdown is derived on read from the last server push
// plus elapsed wall time, so each push inherently supersedes the previous
// countdown and two countdowns can never run at once.
type Reconciler struct {
	mu sync.Mutex

	tournamentID int
	fieldID      *int

	activityWindow time.Duration
	echoWindow     time.Duration
	now            func() time.Time

	match     MatchView
	formData  map[models.AllianceColor]ScoreForm
	lastSaved map[models.AllianceColor]ScoreForm
	totals    map[models.AllianceColor]int

	lastEditAt time.Time
	lastSentAt time.Time

	timer         TimerState
	timerSyncedAt time.Time

	display           DisplaySettings
	announcement      *Announcement
	announcementUntil time.Time
}

func NewReconciler(tournamentID int, fieldID *int, cfg ReconcilerConfig) *Reconciler {
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = defaultActivityWindow
	}
	if cfg.EchoWindow <= 0 {
		cfg.EchoWindow = defaultEchoWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		tournamentID:   tournamentID,
		fieldID:        fieldID,
		activityWindow: cfg.ActivityWindow,
		echoWindow:     cfg.EchoWindow,
		now:            cfg.Now,
		formData:       make(map[models.AllianceColor]ScoreForm),
		lastSaved:      make(map[models.AllianceColor]ScoreForm),
		totals:         make(map[models.AllianceColor]int),
	}
}

// ResetFromPull replaces all client-held state with freshly pulled
// authoritative state. This is the reconnect path: the channel has no
// replay, so after joining rooms again the client pulls and resumes.
func (r *Reconciler) ResetFromPull(match MatchView, scores map[models.AllianceColor]ScoreForm, timer TimerState, display DisplaySettings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.match = match
	r.formData = make(map[models.AllianceColor]ScoreForm, len(scores))
	r.lastSaved = make(map[models.AllianceColor]ScoreForm, len(scores))
	r.totals = make(map[models.AllianceColor]int, len(scores))
	for color, form := range scores {
		r.formData[color] = form
		r.lastSaved[color] = form
		r.totals[color] = totalFromForm(form)
	}
	r.timer = timer
	r.timerSyncedAt = r.now()
	r.display = display
	r.lastEditAt = time.Time{}
	r.lastSentAt = time.Time{}
}

// EditScore records an operator edit, which opens the activity window.
func (r *Reconciler) EditScore(color models.AllianceColor, form ScoreForm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formData[color] = form
	r.totals[color] = totalFromForm(form)
	r.lastEditAt = r.now()
}

// MarkSent flags that we just pushed our own update upstream, so the
// server's echo of it is ignored instead of bouncing back into the form.
func (r *Reconciler) MarkSent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSentAt = r.now()
}

// MarkSaved snapshots the form as persisted.
func (r *Reconciler) MarkSaved() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for color, form := range r.formData {
		r.lastSaved[color] = form
	}
	r.lastSentAt = r.now()
}

// IsUserActive reports whether the operator edited within the window.
func (r *Reconciler) IsUserActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userActiveLocked()
}

func (r *Reconciler) userActiveLocked() bool {
	return !r.lastEditAt.IsZero() && r.now().Sub(r.lastEditAt) < r.activityWindow
}

func (r *Reconciler) echoSuppressedLocked() bool {
	return !r.lastSentAt.IsZero() && r.now().Sub(r.lastSentAt) < r.echoWindow
}

// HasUnsavedChanges compares the form against the last saved snapshot.
func (r *Reconciler) HasUnsavedChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.formData) != len(r.lastSaved) {
		return true
	}
	for color, form := range r.formData {
		if saved, ok := r.lastSaved[color]; !ok || saved != form {
			return true
		}
	}
	return false
}

// Apply merges one incoming event into client state. It returns true if
// the event was applied, false if it was rejected by the scope rule or
// dropped by the suppression rules.
func (r *Reconciler) Apply(e *Event) bool {
	if !e.InScope(r.tournamentID, r.fieldID) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Type {
	case EventDisplayModeChange:
		settings, ok := e.Payload.(*DisplaySettings)
		if !ok {
			return false
		}
		// Full replace, arrival order is the authority.
		r.display = *settings
		return true

	case EventMatchUpdate, EventMatchStateChange:
		patch, ok := e.Payload.(*MatchPatch)
		if !ok {
			return false
		}
		if patch.MatchID == r.match.MatchID && (r.userActiveLocked() || r.echoSuppressedLocked()) {
			return false
		}
		r.applyMatchPatch(patch)
		return true

	case EventScoreUpdate:
		patch, ok := e.Payload.(*ScorePatch)
		if !ok {
			return false
		}
		if patch.MatchID == r.match.MatchID && (r.userActiveLocked() || r.echoSuppressedLocked()) {
			return false
		}
		r.applyScorePatch(patch)
		return true

	case EventTimerUpdate:
		state, ok := e.Payload.(*TimerState)
		if !ok {
			return false
		}
		// Full resync: whatever was counted down locally is discarded.
		r.timer = *state
		r.timerSyncedAt = r.now()
		return true

	case EventAnnouncement:
		announcement, ok := e.Payload.(*Announcement)
		if !ok {
			return false
		}
		// A newer announcement replaces any pending dismissal outright.
		r.announcement = announcement
		r.announcementUntil = r.now().Add(announcement.Duration())
		return true
	}

	return false
}

func (r *Reconciler) applyMatchPatch(patch *MatchPatch) {
	if patch.MatchID != r.match.MatchID {
		r.match = MatchView{MatchID: patch.MatchID}
	}
	if patch.Status != nil {
		r.match.Status = *patch.Status
	}
	if patch.MatchNumber != nil {
		r.match.MatchNumber = *patch.MatchNumber
	}
	if patch.RoundNumber != nil {
		r.match.RoundNumber = *patch.RoundNumber
	}
	if patch.StartedAt != nil {
		r.match.StartedAt = patch.StartedAt
	}
	if patch.EndedAt != nil {
		r.match.EndedAt = patch.EndedAt
	}
}

func (r *Reconciler) applyScorePatch(patch *ScorePatch) {
	form := r.formData[patch.AllianceColor]
	if patch.AutoPoints != nil {
		form.AutoPoints = *patch.AutoPoints
	}
	if patch.DrivePoints != nil {
		form.DrivePoints = *patch.DrivePoints
	}
	if patch.EndgameBonus != nil {
		form.EndgameBonus = *patch.EndgameBonus
	}
	if patch.PenaltyPoints != nil {
		form.PenaltyPoints = *patch.PenaltyPoints
	}
	if patch.TeamCount != nil {
		form.TeamCount = *patch.TeamCount
	}
	r.formData[patch.AllianceColor] = form
	r.lastSaved[patch.AllianceColor] = form
	// The total is always rederived from the merged sub-scores. A stale
	// total riding along in the patch never overrides them.
	r.totals[patch.AllianceColor] = totalFromForm(form)
}

// Match returns the client-held match snapshot.
func (r *Reconciler) Match() MatchView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match
}

// Form returns the current form data for an alliance.
func (r *Reconciler) Form(color models.AllianceColor) ScoreForm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.formData[color]
}

// Total returns the recomputed alliance total.
func (r *Reconciler) Total(color models.AllianceColor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals[color]
}

// Display returns the current display settings.
func (r *Reconciler) Display() DisplaySettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.display
}

// TimerRemaining derives the local countdown: the last server-pushed
// remaining minus elapsed time since that push, floored at zero. The
// next push replaces it entirely, so drift never outlives a round-trip.
func (r *Reconciler) TimerRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining := time.Duration(r.timer.RemainingMs) * time.Millisecond
	if !r.timer.IsRunning {
		return remaining
	}
	remaining -= r.now().Sub(r.timerSyncedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Announcement returns the active overlay, or false once it has
// self-dismissed.
func (r *Reconciler) Announcement() (*Announcement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.announcement == nil || !r.now().Before(r.announcementUntil) {
		return nil, false
	}
	return r.announcement, true
}

func totalFromForm(f ScoreForm) int {
	return swiss.AggregateScore(swiss.ScoreBreakdown{
		AutoPoints:    f.AutoPoints,
		DrivePoints:   f.DrivePoints,
		EndgameBonus:  f.EndgameBonus,
		PenaltyPoints: f.PenaltyPoints,
		TeamCount:     f.TeamCount,
	})
}
