package log

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordingEntry(level logrus.Level) (*logrus.Entry, *test.Hook) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(level)
	hook := test.NewLocal(logger)
	return logrus.NewEntry(logger).WithField("component", "badgerdb"), hook
}

func TestBadgerLogrusAdapter_Levels(t *testing.T) {
	entry, hook := newRecordingEntry(logrus.DebugLevel)
	adapter := NewBadgerLogrusAdapter(entry)

	adapter.Errorf("error %s", "test")
	adapter.Warningf("warning %d", 42)
	adapter.Infof("flushing memtable %v", true)
	adapter.Debugf("debug")

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, "error test", entries[0].Message)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.DebugLevel, entries[2].Level)
	assert.Equal(t, "flushing memtable true", entries[2].Message)
	assert.Equal(t, logrus.DebugLevel, entries[3].Level)
	assert.Equal(t, "badgerdb", entries[0].Data["component"])
}

func TestBadgerLogrusAdapter_InfoHiddenAtInfoLevel(t *testing.T) {
	entry, hook := newRecordingEntry(logrus.InfoLevel)
	adapter := NewBadgerLogrusAdapter(entry)

	adapter.Infof("Lifetime L0 stalled for: %s", "0s")
	assert.Empty(t, hook.AllEntries())

	adapter.Warningf("value log GC skipped")
	require.Len(t, hook.AllEntries(), 1)
}
