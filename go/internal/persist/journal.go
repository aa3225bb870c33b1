package persist

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sink takes snapshots off the journal. Implementations must not block.
type Sink interface {
	SaveRecord(doc Document)
	SaveSeries(series int)
	PublishEvent(event Event)
}

type record struct {
	id         string
	internalID int
	userID     *string
	startTime  time.Time
	state      State
	players    map[int]*PlayerData
	events     []Event
}

// Journal keeps the record of the game in progress and hands every change
// to a Sink. Failures are logged, never returned, so the game loop is not
// affected by persistence problems. Not safe for concurrent use.
type Journal struct {
	clock   clockwork.Clock
	sink    Sink
	series  int
	current *record
}

func NewJournal(clock clockwork.Clock, series int, sink Sink) *Journal {
	return &Journal{clock: clock, series: series, sink: sink}
}

// NewRecord opens a record for players keyed by slot index and returns its
// id, the zero-padded series number.
func (j *Journal) NewRecord(players map[int]PlayerData, uid string) string {
	id := fmt.Sprintf("%06d", j.series)
	j.series++

	rec := &record{
		id:         id,
		internalID: j.series,
		startTime:  j.clock.Now(),
		state:      StateRunning,
		players:    make(map[int]*PlayerData, len(players)),
	}
	if uid != "" {
		u := uid
		rec.userID = &u
	}
	for pid, p := range players {
		data := p
		rec.players[pid] = &data
	}
	j.current = rec

	log.Info().Str("component", "persist").Str("game_id", id).Int("players", len(players)).Msg("game record opened")
	j.sink.SaveSeries(j.series)
	j.save()
	return id
}

func (j *Journal) CurrentID() string {
	if j.current == nil {
		return ""
	}
	return j.current.id
}

func (j *Journal) Series() int {
	return j.series
}

func (j *Journal) CurrentUserID() string {
	if j.current == nil || j.current.userID == nil {
		return ""
	}
	return *j.current.userID
}

func (j *Journal) AssignUserID(uid string) {
	if j.current == nil {
		log.Error().Str("component", "persist").Msg("could not assign user id, no game record open")
		return
	}
	u := uid
	j.current.userID = &u
	j.save()
}

func (j *Journal) LogEvent(t EventType, desc map[string]any) {
	if j.current == nil {
		return
	}
	event := Event{
		ID:     uuid.New(),
		GameID: j.current.id,
		Type:   t,
		Desc:   desc,
		Time:   j.clock.Now(),
	}
	j.current.events = append(j.current.events, event)
	j.save()
	j.sink.PublishEvent(event)
}

func (j *Journal) StartGame(remaining time.Duration) {
	j.LogEvent(EventGameStart, map[string]any{
		"rtime": seconds(remaining),
		"gtime": 0,
	})
}

func (j *Journal) EndGame(reason string, winner int, running, remaining time.Duration) {
	if j.current == nil {
		return
	}
	j.current.state = StateFinished
	j.LogEvent(EventGameEnd, map[string]any{
		"reason": reason,
		"winner": winner,
		"gtime":  seconds(running),
		"rtime":  seconds(remaining),
	})
	log.Info().Str("component", "persist").Str("game_id", j.current.id).Msg("game record closed")
	j.current = nil
}

func (j *Journal) PauseUnpause() {
	if j.current == nil {
		return
	}
	switch j.current.state {
	case StateRunning:
		j.current.state = StatePaused
		j.LogEvent(EventGamePause, nil)
	case StatePaused:
		j.current.state = StateRunning
		j.LogEvent(EventGameUnpause, nil)
	}
}

// UpdateScore records a score change. Unforced changes are logged as
// SCORE_CHANGE events, forced ones only update the stored score.
func (j *Journal) UpdateScore(player, score int, forced bool, gameTime time.Duration) {
	old, err := j.setScore(player, score)
	if err != nil {
		log.Error().
			Err(err).
			Str("component", "persist").
			Int("player", player).
			Int("score", score).
			Bool("forced", forced).
			Msg("could not update score")
		return
	}
	if forced {
		j.save()
		return
	}
	j.LogEvent(EventScoreChange, scoreDesc(player, old, score, gameTime))
}

func (j *Journal) ForceScore(player, score int, gameTime time.Duration) {
	old, err := j.setScore(player, score)
	if err != nil {
		log.Debug().Err(err).Str("component", "persist").Int("player", player).Msg("could not force score")
		return
	}
	j.LogEvent(EventScoreForced, scoreDesc(player, old, score, gameTime))
}

func (j *Journal) setScore(player, score int) (int, error) {
	if j.current == nil {
		return 0, ErrNoRecord
	}
	p, ok := j.current.players[player]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	if j.current.state == StateFinished {
		return 0, ErrGameFinished
	}
	old := p.Score
	p.Score = score
	return old, nil
}

// Snapshot returns the stored form of the open record.
func (j *Journal) Snapshot() (Document, bool) {
	if j.current == nil {
		return Document{}, false
	}
	return j.current.document(), true
}

func (j *Journal) save() {
	if j.current == nil {
		return
	}
	j.sink.SaveRecord(j.current.document())
}

func (r *record) document() Document {
	players := make(map[string]PlayerData, len(r.players))
	for pid, p := range r.players {
		players[strconv.Itoa(pid)] = *p
	}
	events := make([]Event, len(r.events))
	copy(events, r.events)

	var uid *string
	if r.userID != nil {
		u := *r.userID
		uid = &u
	}

	return Document{
		ID:         r.id,
		StartTime:  r.startTime,
		GameState:  r.state.String(),
		Events:     events,
		PlayerData: players,
		GameData:   GameData{InternalID: r.internalID, UserID: uid},
	}
}

func scoreDesc(player, old, score int, gameTime time.Duration) map[string]any {
	return map[string]any{
		"player":    player,
		"old_score": old,
		"new_score": score,
		"gtime":     seconds(gameTime),
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
