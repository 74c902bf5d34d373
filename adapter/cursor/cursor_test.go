package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/row"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

type decoderMock struct {
	mock.Mock
}

func (d *decoderMock) Decode(source any, target any) error {
	return d.Called(source, target).Error(0)
}

type CursorTestSuite struct {
	suite.Suite
	rows []*row.Row
	ctx  context.Context
}

func (s *CursorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.rows = nil
	for _, name := range []string{"ann", "bob"} {
		r := row.New()
		r.InsertValue(0, domain.NewValue(name))
		r.InsertValue(1, domain.NewValue("30"))
		s.rows = append(s.rows, r)
	}
}

func (s *CursorTestSuite) TestIterate() {
	cur, err := NewCursor(s.ctx, []string{"name", "age"}, s.rows)
	s.Require().NoError(err)
	s.Equal(2, cur.Len())
	s.Equal([]string{"name", "age"}, cur.Columns())
	s.Nil(cur.Row())

	type person struct {
		Name string `gedbql:"name"`
		Age  int    `gedbql:"age"`
	}
	var got []person
	for cur.Next() {
		var p person
		s.Require().NoError(cur.Scan(s.ctx, &p))
		got = append(got, p)
	}
	s.Equal([]person{{"ann", 30}, {"bob", 30}}, got)
	s.NoError(cur.Err())
	s.False(cur.Next())
}

func (s *CursorTestSuite) TestScanBeforeNext() {
	cur, err := NewCursor(s.ctx, []string{"name"}, s.rows)
	s.Require().NoError(err)
	var out map[string]any
	s.ErrorIs(cur.Scan(s.ctx, &out), domain.ErrScanBeforeNext)
}

func (s *CursorTestSuite) TestClose() {
	cur, err := NewCursor(s.ctx, []string{"name"}, s.rows)
	s.Require().NoError(err)
	s.True(cur.Next())
	s.NoError(cur.Close())

	s.False(cur.Next())
	s.ErrorIs(cur.Err(), domain.ErrCursorClosed)
	var out map[string]any
	s.ErrorIs(cur.Scan(s.ctx, &out), domain.ErrCursorClosed)
	s.ErrorIs(cur.Close(), domain.ErrCursorClosed)
}

func (s *CursorTestSuite) TestContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := NewCursor(ctx, nil, s.rows)
	s.ErrorIs(err, context.Canceled)

	ctx, cancel = context.WithCancel(s.ctx)
	cur, err := NewCursor(ctx, []string{"name"}, s.rows)
	s.Require().NoError(err)
	s.True(cur.Next())
	cancel()
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), context.Canceled)

	cur, err = NewCursor(s.ctx, []string{"name"}, s.rows)
	s.Require().NoError(err)
	s.True(cur.Next())
	scanCtx, scanCancel := context.WithCancel(s.ctx)
	scanCancel()
	var out map[string]any
	s.ErrorIs(cur.Scan(scanCtx, &out), context.Canceled)
}

func (s *CursorTestSuite) TestDecoderError() {
	dec := new(decoderMock)
	var out map[string]any
	dec.On("Decode", mock.Anything, &out).Return(errors.New("bad")).Once()

	cur, err := NewCursor(s.ctx, []string{"name", "age"}, s.rows, WithDecoder(dec))
	s.Require().NoError(err)
	s.True(cur.Next())
	s.EqualError(cur.Scan(s.ctx, &out), "bad")

	f := dec.Calls[0].Arguments.Get(0).(domain.Fields)
	v, _ := f.Get("AGE")
	s.Equal("30", v.String())
	dec.AssertExpectations(s.T())
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
