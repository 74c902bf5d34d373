package timegetter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TimeGetterTestSuite struct {
	suite.Suite
	clock *TimeGetter
}

func (s *TimeGetterTestSuite) SetupTest() {
	s.clock = NewTimeGetter().(*TimeGetter)
}

func (s *TimeGetterTestSuite) TestWallClock() {
	lower := time.Now()
	first := s.clock.GetTime()
	second := s.clock.GetTime()

	s.WithinRange(first, lower, time.Now())
	s.False(second.Before(first))
}

func TestTimeGetterTestSuite(t *testing.T) {
	suite.Run(t, new(TimeGetterTestSuite))
}
