package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDefaultsToInfoLevelOnStderr(t *testing.T) {
	logger, err := Setup(Options{})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(Options{Level: "not-a-level"})
	assert.Error(t, err)
}

func TestSetupWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := Setup(Options{LogFile: dir + "/run.log", Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestWarnDecodeWarningIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})

	WarnDecodeWarning(logger, 4096, "$MFT record 42", assertError("bad fixup"))

	assert.Contains(t, buf.String(), "offset=4096")
	assert.Contains(t, buf.String(), "bad fixup")
}

type assertError string

func (e assertError) Error() string { return string(e) }
