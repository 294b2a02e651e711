package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFieldsAppends(t *testing.T) {
	ctx := WithFields(context.Background(), "a", 1)
	ctx = WithFields(ctx, "b", 2)
	assert.Equal(t, []interface{}{"a", 1, "b", 2}, FromContext(ctx))

	same := WithFields(ctx)
	assert.Equal(t, ctx, same)
	assert.Nil(t, FromContext(context.Background()))
}

func TestInfowCtxMergesContextFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(nil) })

	ctx := WithFields(context.Background(), SessionFields("abc", "sse")...)
	InfowCtx(ctx, "tool called", ToolFields("add", false)...)

	entries := logs.FilterMessage("tool called").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["session.id"])
	assert.Equal(t, "sse", fields["session.kind"])
	assert.Equal(t, "add", fields["tool.name"])
	assert.Equal(t, false, fields["tool.error"])
}

func TestSetLoggerNilFallsBackToNoop(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, GetLogger())
	Infow("dropped")
	assert.NoError(t, Sync())
}

func TestSessionFieldsWithoutKind(t *testing.T) {
	assert.Equal(t, []interface{}{"session.id", "x"}, SessionFields("x", ""))
}
