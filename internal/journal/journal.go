// Package journal is the bot's decision log: every entry goes to the zap
// logger and, throttled by key, to the notification sink.
package journal

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trend_trader/internal/throttle"
)

// Sender delivers a text message somewhere (Telegram in production).
type Sender interface {
	Send(text string) error
}

// Journal fans log lines out to the notification sink with key-based suppression.
type Journal struct {
	log            *zap.Logger
	sender         Sender
	throttle       *throttle.Throttle
	notifyCooldown time.Duration
	logCooldown    time.Duration
}

// New wires a journal. A nil sender disables notifications.
func New(log *zap.Logger, sender Sender, th *throttle.Throttle, notifyCooldown, logCooldown time.Duration) *Journal {
	if th == nil {
		th = throttle.New()
	}
	return &Journal{
		log:            log,
		sender:         sender,
		throttle:       th,
		notifyCooldown: notifyCooldown,
		logCooldown:    logCooldown,
	}
}

// Logger exposes the underlying zap logger for debug-level detail.
func (j *Journal) Logger() *zap.Logger { return j.log }

// Record logs msg and forwards it, keyed by the message text, at most once per notify cooldown.
func (j *Journal) Record(msg string, fields ...zap.Field) {
	j.log.Info(msg, fields...)
	j.notifyKeyed(msg, msg)
}

// Warn is Record at warning level.
func (j *Journal) Warn(msg string, fields ...zap.Field) {
	j.log.Warn(msg, fields...)
	j.notifyKeyed(msg, msg)
}

// Limited logs and forwards msg only if key has been quiet for the log cooldown.
// It returns whether the entry was written.
func (j *Journal) Limited(key, msg string, fields ...zap.Field) bool {
	return j.limited(zapcore.ErrorLevel, key, msg, fields...)
}

// LimitedWarn is Limited for expected outcomes that are not failures.
func (j *Journal) LimitedWarn(key, msg string, fields ...zap.Field) bool {
	return j.limited(zapcore.WarnLevel, key, msg, fields...)
}

func (j *Journal) limited(lvl zapcore.Level, key, msg string, fields ...zap.Field) bool {
	if !j.throttle.Allow("log:"+key, j.logCooldown) {
		return false
	}
	j.log.Log(lvl, msg, fields...)
	j.notifyKeyed(msg, msg)
	return true
}

// Notify sends msg without any suppression (fills, stop changes).
func (j *Journal) Notify(msg string) {
	j.send(msg)
}

func (j *Journal) notifyKeyed(key, msg string) {
	if !j.throttle.Allow("notify:"+key, j.notifyCooldown) {
		return
	}
	j.send(msg)
}

// send never propagates a delivery failure.
func (j *Journal) send(msg string) {
	if j.sender == nil {
		return
	}
	if err := j.sender.Send(msg); err != nil {
		j.log.Warn("Notification failed", zap.Error(err))
	}
}
