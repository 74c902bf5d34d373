package hasher

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/suite"
)

type HasherTestSuite struct {
	suite.Suite
	h *Hasher
}

func (s *HasherTestSuite) SetupTest() {
	s.h = NewHasher().(*Hasher)
}

func (s *HasherTestSuite) TestHashIsCaseInsensitive() {
	s.Equal(s.h.Hash("select a from t"), s.h.Hash("SELECT A FROM T"))
	s.NotEqual(s.h.Hash("select a from t"), s.h.Hash("select b from t"))
}

func (s *HasherTestSuite) TestHashUsesXXHash() {
	s.Equal(xxhash.Sum64String("abc"), s.h.Hash("ABC"))
}

func (s *HasherTestSuite) TestKey() {
	s.Equal("0000000000000000", s.h.Key(0))
	s.Equal("00000000000000ff", s.h.Key(255))
	s.Len(s.h.Key(s.h.Hash("anything")), 16)
}

func TestHasherTestSuite(t *testing.T) {
	suite.Run(t, new(HasherTestSuite))
}
