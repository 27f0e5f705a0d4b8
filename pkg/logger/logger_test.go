// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestDefaultLoggerDoesNotPanic(t *testing.T) {
	// The init default must be usable without Initialize.
	require.NotNil(t, Get())
	Info("default logger works")
}

func TestSetReplacesSingleton(t *testing.T) {
	orig := Get()
	t.Cleanup(func() { Set(orig) })

	l, logs := newObservedLogger()
	Set(l)

	Infow("hello", "key", "value")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "value", entries[0].ContextMap()["key"])
}

func TestFormattedLevels(t *testing.T) {
	orig := Get()
	t.Cleanup(func() { Set(orig) })

	l, logs := newObservedLogger()
	Set(l)

	Debugf("count=%d", 1)
	Warnf("count=%d", 2)
	Errorf("count=%d", 3)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "count=1", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestInitialize(t *testing.T) {
	orig := Get()
	t.Cleanup(func() { Set(orig) })

	Initialize(true)
	require.NotNil(t, Get())

	Initialize(false)
	require.NotNil(t, Get())
}
