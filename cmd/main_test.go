package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	bytes.Buffer
	synced int
}

func (b *syncBuffer) Sync() error {
	b.synced++
	return nil
}

func bufferedLogger(out *syncBuffer) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), out, zapcore.DebugLevel)
	return zap.New(core)
}

func TestExitCodeFlushesOnError(t *testing.T) {
	var out syncBuffer
	code := exitCode(bufferedLogger(&out), errors.New("listen tcp :8080: address already in use"))

	assert.Equal(t, 1, code)
	assert.Equal(t, 1, out.synced)
	assert.Contains(t, out.String(), `"msg":"server stopped"`)
	assert.Contains(t, out.String(), "address already in use")
}

func TestExitCodeCleanShutdown(t *testing.T) {
	var out syncBuffer
	code := exitCode(bufferedLogger(&out), nil)

	assert.Equal(t, 0, code)
	assert.Equal(t, 1, out.synced)
	assert.Empty(t, out.String())
}
