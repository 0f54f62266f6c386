package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
	dir string
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *LoggerTestSuite) TestRotatorRotatesAtMaxSize() {
	name := filepath.Join(suite.dir, "log.txt")
	r := &Rotator{Filename: name, MaxSize: 10, MaxBackups: 2}
	defer r.Close()

	_, err := r.Write([]byte("12345678"))
	suite.Require().NoError(err)
	_, err = r.Write([]byte("abcdefgh"))
	suite.Require().NoError(err)

	current, err := os.ReadFile(name)
	suite.Require().NoError(err)
	suite.Equal("abcdefgh", string(current))

	backup, err := os.ReadFile(name + ".1")
	suite.Require().NoError(err)
	suite.Equal("12345678", string(backup))
}

func (suite *LoggerTestSuite) TestRotatorAppendsToExistingFile() {
	name := filepath.Join(suite.dir, "log.txt")
	suite.Require().NoError(os.WriteFile(name, []byte("old\n"), 0644))

	r := NewRotator(name, 1, 1)
	_, err := r.Write([]byte("new\n"))
	suite.Require().NoError(err)
	suite.Require().NoError(r.Close())

	b, err := os.ReadFile(name)
	suite.Require().NoError(err)
	suite.Equal("old\nnew\n", string(b))
}

func (suite *LoggerTestSuite) TestNewWritesTimestampedLines() {
	var buf bytes.Buffer
	l := New(zapcore.AddSync(&buf), zapcore.InfoLevel)

	l.Info("Bot started", zap.String("symbol", "BTCUSDT"))
	l.Debug("hidden")
	suite.Require().NoError(l.Sync())

	out := buf.String()
	suite.Contains(out, "INFO")
	suite.Contains(out, "Bot started")
	suite.Contains(out, `"symbol": "BTCUSDT"`)
	suite.NotContains(out, "hidden")
	suite.Equal(1, strings.Count(out, "\n"))
}

func (suite *LoggerTestSuite) TestSetupCreatesLogFile() {
	name := filepath.Join(suite.dir, "bot.log")
	l, err := Setup(name, 1, 1, "debug")
	suite.Require().NoError(err)
	l.Info("written to file")
	_ = l.Sync()

	b, err := os.ReadFile(name)
	suite.Require().NoError(err)
	suite.Contains(string(b), "written to file")
}

func (suite *LoggerTestSuite) TestParseLevel() {
	lvl, err := ParseLevel("DEBUG")
	suite.NoError(err)
	suite.Equal(zapcore.DebugLevel, lvl)

	lvl, err = ParseLevel("")
	suite.NoError(err)
	suite.Equal(zapcore.InfoLevel, lvl)

	_, err = ParseLevel("loud")
	suite.Error(err)
}
