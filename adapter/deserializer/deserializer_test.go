package deserializer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

var ctx = context.Background()

type DeserializerTestSuite struct {
	suite.Suite
	d domain.Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer()
}

func (s *DeserializerTestSuite) TestDocument() {
	rec, err := s.d.Deserialize(ctx, []byte(`{"$schema":"People","$page":2,"$id":9,"fields":{"name":"ann","address.city":null,"age":"30"}}`))
	s.Require().NoError(err)
	s.Equal(domain.DocumentPointer{Schema: "People", Page: 2, DocumentID: 9}, rec.Pointer)
	s.False(rec.Deleted)

	var names []string
	for k := range rec.Fields.Iter() {
		names = append(names, k)
	}
	s.Equal([]string{"name", "address.city", "age"}, names)
	city, ok := rec.Fields.Get("address.city")
	s.True(ok)
	s.True(city.IsNull())
	age, _ := rec.Fields.Get("AGE")
	s.Equal("30", age.String())
}

func (s *DeserializerTestSuite) TestDeleted() {
	rec, err := s.d.Deserialize(ctx, []byte(`{"$schema":"t","$page":0,"$id":3,"$deleted":true}`))
	s.Require().NoError(err)
	s.True(rec.Deleted)
	s.Nil(rec.Fields)
	s.Equal(uint64(3), rec.Pointer.DocumentID)
}

func (s *DeserializerTestSuite) TestReadsSerializerOutput() {
	fields := keymap.New[domain.Value]()
	fields.Set("quote", domain.NewValue("say \"hi\"\n"))
	in := domain.Record{Pointer: domain.DocumentPointer{Schema: "t", Page: 4, DocumentID: 40}, Fields: fields}

	line, err := serializer.NewSerializer().Serialize(ctx, in)
	s.Require().NoError(err)
	out, err := s.d.Deserialize(ctx, line)
	s.Require().NoError(err)
	s.Equal(in.Pointer, out.Pointer)
	v, _ := out.Fields.Get("quote")
	s.Equal("say \"hi\"\n", v.String())
}

func (s *DeserializerTestSuite) TestInvalid() {
	_, err := s.d.Deserialize(ctx, []byte(`not json`))
	s.Error(err)

	_, err = s.d.Deserialize(ctx, []byte(`{"$page":0,"$id":1,"fields":{}}`))
	s.ErrorIs(err, ErrInvalidRecord)

	_, err = s.d.Deserialize(ctx, []byte(`{"$schema":"t","$page":0,"fields":{}}`))
	s.ErrorIs(err, ErrInvalidRecord)

	_, err = s.d.Deserialize(ctx, []byte(`{"$schema":"t","$page":-1,"$id":1}`))
	s.ErrorIs(err, ErrInvalidRecord)

	c, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.d.Deserialize(c, []byte(`{}`))
	s.ErrorIs(err, context.Canceled)
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
