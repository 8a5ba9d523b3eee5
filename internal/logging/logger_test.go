package logging_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/aerocal/gaugecore/internal/logging"
)

func TestNewParsesARecognizedLevel(t *testing.T) {
	l := logging.New(logging.Config{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNewFallsBackToInfoOnAnUnrecognizedLevel(t *testing.T) {
	l := logging.New(logging.Config{Level: "not-a-level", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNewSelectsJSONFormatterCaseInsensitively(t *testing.T) {
	l := logging.New(logging.Config{Level: "info", Format: "JSON"})
	_, ok := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewDefaultsToTextFormatterForAnUnrecognizedFormat(t *testing.T) {
	l := logging.New(logging.Config{Level: "info", Format: "yaml"})
	_, ok := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestNewDefaultAttachesNoComponentFieldButIsUsableStandalone(t *testing.T) {
	l := logging.NewDefault("audit")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.NotNil(t, l.WithField("key", "value"))
}
