package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LoggingTestSuite struct {
	suite.Suite
	buf *bytes.Buffer
}

func (s *LoggingTestSuite) SetupTest() {
	s.buf = new(bytes.Buffer)
}

func (s *LoggingTestSuite) TestText() {
	l, err := New(Config{Output: s.buf})
	s.Require().NoError(err)
	l.Debug("hidden")
	l.Info("lock granted", "pid", 3)
	s.NotContains(s.buf.String(), "hidden")
	s.Contains(s.buf.String(), "msg=\"lock granted\" pid=3")
}

func (s *LoggingTestSuite) TestJSON() {
	l, err := New(Config{Level: "debug", Format: "JSON", Output: s.buf})
	s.Require().NoError(err)
	l.Debug("plan chosen", "plan", "p: full scan")

	var rec map[string]any
	s.Require().NoError(json.Unmarshal(s.buf.Bytes(), &rec))
	s.Equal("DEBUG", rec["level"])
	s.Equal("p: full scan", rec["plan"])
}

func (s *LoggingTestSuite) TestLevels() {
	l, err := New(Config{Level: "WARN", Output: s.buf})
	s.Require().NoError(err)
	l.Info("dropped")
	l.Warn("kept")
	s.NotContains(s.buf.String(), "dropped")
	s.Contains(s.buf.String(), "kept")
}

func (s *LoggingTestSuite) TestInvalid() {
	_, err := New(Config{Level: "loud"})
	s.ErrorContains(err, "log level")
	_, err = New(Config{Format: "xml"})
	s.ErrorContains(err, "log format \"xml\"")
}

func (s *LoggingTestSuite) TestDiscard() {
	s.False(Discard().Enabled(context.Background(), slog.LevelError))
}

func TestLoggingTestSuite(t *testing.T) {
	suite.Run(t, new(LoggingTestSuite))
}
