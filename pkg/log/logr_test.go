package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogr_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogr(NewZerologAdapterWithWriter(&buf, zerolog.DebugLevel))

	l.Info("attempting to acquire leader lease", "lock", "network/rolekeeper-node-1")
	l.V(4).Info("lease still held", "holder", "pod-a")
	l.Error(errors.New("etcdserver: timeout"), "error retrieving resource lock")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "network/rolekeeper-node-1", lines[0]["lock"])
	assert.Equal(t, "debug", lines[1]["level"])
	assert.Equal(t, "pod-a", lines[1]["holder"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "etcdserver: timeout", lines[2]["error"])
}

func TestNewLogr_NameAndValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogr(NewZerologAdapterWithWriter(&buf, zerolog.InfoLevel)).
		WithName("leaderelection").
		WithValues("identity", "pod-a")

	l.Info("became leader", 7, "dangling")
	l.V(2).Info("filtered by level")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "leaderelection", lines[0]["logger"])
	assert.Equal(t, "pod-a", lines[0]["identity"])
	assert.Equal(t, "dangling", lines[0]["7"])
}

func TestNewLogr_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewLogr(nil).Info("dropped")
	})
}
