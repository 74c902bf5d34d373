package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

func doc(kv ...string) domain.Fields {
	m := keymap.New[domain.Value]()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], domain.NewValue(kv[i+1]))
	}
	return m
}

func ptr(id uint64) domain.DocumentPointer {
	return domain.DocumentPointer{Schema: "people", Page: 1, DocumentID: id}
}

func values(s ...string) []domain.Value {
	res := make([]domain.Value, len(s))
	for n, v := range s {
		res[n] = domain.NewValue(v)
	}
	return res
}

type IndexTestSuite struct {
	suite.Suite
	idx *Index
	ctx context.Context
}

func (s *IndexTestSuite) SetupTest() {
	var err error
	s.idx, err = NewIndex(WithSchema("people"), WithAttributes("city", "age"))
	s.Require().NoError(err)
	s.ctx = context.Background()

	s.Require().NoError(s.idx.Insert(ptr(1), doc("city", "Rome", "age", "30")))
	s.Require().NoError(s.idx.Insert(ptr(2), doc("city", "Paris", "age", "25")))
	s.Require().NoError(s.idx.Insert(ptr(3), doc("city", "rome", "age", "9")))
	s.Require().NoError(s.idx.Insert(ptr(4), doc("city", "Rome", "age", "30")))
	s.Require().NoError(s.idx.Insert(ptr(5), doc("age", "40")))
}

func (s *IndexTestSuite) TestDefinition() {
	s.Equal("people_city_age", s.idx.Name())
	s.Equal("people", s.idx.Schema())
	s.False(s.idx.Unique())
	s.Equal([]domain.IndexAttribute{{Field: "city"}, {Field: "age"}}, s.idx.Attributes())
	s.Equal(5, s.idx.Len())
	s.Equal(4, s.idx.NumberOfKeys())
}

func (s *IndexTestSuite) TestNoAttributes() {
	_, err := NewIndex(WithSchema("people"))
	s.ErrorIs(err, ErrNoAttributes)
}

func (s *IndexTestSuite) TestAllIsKeyOrdered() {
	// null city first, then Paris, then Rome with numeric age order.
	s.Equal([]domain.DocumentPointer{ptr(5), ptr(2), ptr(3), ptr(1), ptr(4)}, s.idx.All())
}

func (s *IndexTestSuite) TestLookupExact() {
	res, err := s.idx.Lookup(s.ctx, values("ROME", "30.0"))
	s.NoError(err)
	s.ElementsMatch([]domain.DocumentPointer{ptr(1), ptr(4)}, res)

	res, err = s.idx.Lookup(s.ctx, values("Rome", "31"))
	s.NoError(err)
	s.Empty(res)
}

func (s *IndexTestSuite) TestLookupPrefix() {
	res, err := s.idx.Lookup(s.ctx, values("rome"))
	s.NoError(err)
	s.Len(res, 3)
	s.Equal(ptr(3), res[0])

	res, err = s.idx.Lookup(s.ctx, values("Berlin"))
	s.NoError(err)
	s.Empty(res)
}

func (s *IndexTestSuite) TestLookupEmptyPrefix() {
	res, err := s.idx.Lookup(s.ctx, nil)
	s.NoError(err)
	s.Len(res, 5)
}

func (s *IndexTestSuite) TestLookupTooLong() {
	_, err := s.idx.Lookup(s.ctx, values("a", "b", "c"))
	s.ErrorAs(err, &domain.ErrEngine{})
}

func (s *IndexTestSuite) TestLookupCanceled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.idx.Lookup(ctx, values("Rome"))
	s.ErrorIs(err, context.Canceled)
}

func (s *IndexTestSuite) TestRemove() {
	s.NoError(s.idx.Remove(ptr(1), doc("city", "Rome", "age", "30")))
	s.Equal(4, s.idx.Len())

	res, err := s.idx.Lookup(s.ctx, values("Rome", "30"))
	s.NoError(err)
	s.Equal([]domain.DocumentPointer{ptr(4)}, res)

	// removing an absent pointer is a no-op
	s.NoError(s.idx.Remove(ptr(99), doc("city", "Rome", "age", "30")))
	s.Equal(4, s.idx.Len())
}

func (s *IndexTestSuite) TestUnique() {
	u, err := NewIndex(WithName("by_email"), WithSchema("people"), WithAttributes("email"), WithUnique(true))
	s.Require().NoError(err)
	s.NoError(u.Insert(ptr(1), doc("email", "a@x.io")))
	err = u.Insert(ptr(2), doc("email", "A@X.IO"))
	s.ErrorIs(err, ErrConstraintViolated)
	s.ErrorContains(err, "by_email")
	s.Equal(1, u.Len())
}

func (s *IndexTestSuite) TestClone() {
	c := s.idx.Clone()
	s.Equal(s.idx.Name(), c.Name())
	s.Equal(s.idx.Attributes(), c.Attributes())
	s.Equal(0, c.Len())
	s.Empty(c.All())
}

func (s *IndexTestSuite) TestCatalog() {
	cat := NewCatalog()
	other, err := NewIndex(WithName("A_first"), WithSchema("People"), WithAttributes("name"))
	s.Require().NoError(err)

	s.NoError(cat.Register(s.idx))
	s.NoError(cat.Register(other))
	s.ErrorAs(cat.Register(s.idx), &domain.ErrEngine{})

	list := cat.ForSchema("PEOPLE")
	s.Require().Len(list, 2)
	s.Equal("A_first", list[0].Name())
	s.Equal(s.idx, list[1])

	got, ok := cat.Get("people", "a_FIRST")
	s.True(ok)
	s.Equal(other, got)

	_, ok = cat.Get("orders", "a_first")
	s.False(ok)
	s.Empty(cat.ForSchema("orders"))
	s.Equal([]string{"people"}, cat.Schemas())
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}

func TestCompareKeys(t *testing.T) {
	c := newBSTComparer(comparer.NewComparer())
	cases := []struct {
		a, b Key
		want int
	}{
		{Key(values("a")), Key(values("a", "b")), -1},
		{Key(values("a", "b")), Key(values("A", "B")), 0},
		{Key(values("2")), Key(values("10")), -1},
		{Key{domain.Null()}, Key(values("0")), -1},
		{Key(values("b")), Key(values("a", "z")), 1},
		{Key{}, Key{}, 0},
	}
	for _, tc := range cases {
		got, err := c.CompareKeys(tc.a, tc.b)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v vs %v", tc.a, tc.b)
	}

	same, err := c.CompareValues(entry{ptr: ptr(1)}, entry{key: Key(values("x")), ptr: ptr(1)})
	assert.NoError(t, err)
	assert.True(t, same)
	same, err = c.CompareValues(entry{ptr: ptr(1)}, entry{ptr: ptr(2)})
	assert.NoError(t, err)
	assert.False(t, same)
}
