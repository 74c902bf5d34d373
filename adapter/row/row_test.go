package row

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

func ptr(schema string, id uint64) domain.DocumentPointer {
	return domain.DocumentPointer{Schema: schema, Page: 0, DocumentID: id}
}

type RowTestSuite struct {
	suite.Suite
	r *Row
}

func (s *RowTestSuite) SetupTest() {
	s.r = New()
}

func (s *RowTestSuite) TestInsertValueGrowsWithNulls() {
	s.r.InsertValue(2, domain.NewValue("c"))
	s.Equal(3, s.r.Len())
	s.True(s.r.Value(0).IsNull())
	s.True(s.r.Value(1).IsNull())
	s.Equal("c", s.r.Value(2).String())
	s.True(s.r.Value(7).IsNull())

	s.r.InsertValue(0, domain.NewValue("a"))
	s.r.InsertValue(2, domain.NewValue("z"))
	s.Equal("z", s.r.Value(2).String())
	s.Equal(3, s.r.Len())

	s.Panics(func() { s.r.InsertValue(-1, domain.Null()) })
}

func (s *RowTestSuite) TestSchemaPointers() {
	s.r.AddSchemaPointer("u", ptr("users", 1))
	s.r.AddSchemaPointer("o", ptr("orders", 9))

	p, ok := s.r.Pointer("U")
	s.True(ok)
	s.Equal(ptr("users", 1), p)
	s.Equal([]string{"u", "o"}, s.r.Aliases())
	s.True(s.r.HasSchema("ORDERS"))
	s.False(s.r.HasSchema("items"))
	s.True(s.r.HasAlias("O"))
	s.False(s.r.HasAlias("orders"))

	s.Panics(func() { s.r.AddSchemaPointer("O", ptr("orders", 10)) })
}

func (s *RowTestSuite) TestSelfJoinKeepsBothAliases() {
	s.r.AddSchemaPointer("p1", ptr("people", 1))
	s.r.AddSchemaPointer("p2", ptr("people", 2))

	s.True(s.r.HasAlias("p1"))
	s.True(s.r.HasAlias("P2"))
	s.False(s.r.HasAlias("people"))
	s.True(s.r.HasSchema("people"))
	s.Equal([]string{"p1", "p2"}, s.r.Aliases())

	p, ok := s.r.Pointer("p2")
	s.True(ok)
	s.Equal(ptr("people", 2), p)

	c := s.r.Clone()
	s.True(c.HasAlias("p1"))
	s.True(c.HasAlias("p2"))
}

func (s *RowTestSuite) TestAuxiliary() {
	s.r.SetAuxiliary("u.age", domain.NewValue("30"))
	v, ok := s.r.Auxiliary("U.AGE")
	s.True(ok)
	s.Equal("30", v.String())

	f := s.r.AuxiliaryFields()
	s.Equal(1, f.Len())
	s.True(f.Has("u.age"))
}

func (s *RowTestSuite) TestCloneIsDeep() {
	s.r.InsertValue(0, domain.NewValue("a"))
	s.r.AddSchemaPointer("u", ptr("users", 1))
	s.r.SetAuxiliary("x", domain.NewValue("1"))

	c := s.r.Clone()
	c.InsertValue(0, domain.NewValue("b"))
	c.InsertValue(1, domain.NewValue("c"))
	c.AddSchemaPointer("o", ptr("orders", 2))
	c.SetAuxiliary("x", domain.NewValue("2"))

	s.Equal(1, s.r.Len())
	s.Equal("a", s.r.Value(0).String())
	s.Equal([]string{"u"}, s.r.Aliases())
	s.False(s.r.HasSchema("orders"))
	s.False(s.r.HasAlias("o"))
	s.True(c.HasAlias("o"))
	v, _ := s.r.Auxiliary("x")
	s.Equal("1", v.String())

	vals := s.r.Values()
	vals[0] = domain.NewValue("changed")
	s.Equal("a", s.r.Value(0).String())
}

func (s *RowTestSuite) TestRows() {
	rs := NewRows()
	a, b := New(), New()
	s.True(rs.Add(a))
	s.True(rs.Add(b))
	s.Equal(2, rs.Len())
	s.Equal([]*Row{a, b}, rs.All())

	rs.Discard()
	s.True(rs.Discarded())
	s.Equal(0, rs.Len())
	s.False(rs.Add(New()))
	s.Empty(rs.All())
}

func TestRowTestSuite(t *testing.T) {
	suite.Run(t, new(RowTestSuite))
}
