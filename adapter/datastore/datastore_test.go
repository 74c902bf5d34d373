package datastore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/condition"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/config"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/executor"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/function"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/index"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/logging"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/transaction"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

var ctx = context.Background()

type M = map[string]any

type DatastoreTestSuite struct {
	suite.Suite
	reg *prometheus.Registry
	d   *Datastore
}

func (s *DatastoreTestSuite) SetupTest() {
	cfg := config.Default()
	cfg.LockTimeout = 30 * time.Millisecond
	cfg.Storage.PageSize = 2
	s.reg = prometheus.NewRegistry()

	var err error
	s.d, err = NewDatastore(
		WithConfig(cfg),
		WithLogger(logging.Discard()),
		WithRegisterer(s.reg),
	)
	s.Require().NoError(err)
}

func (s *DatastoreTestSuite) names(tx *transaction.Transaction, stmt executor.Statement) []string {
	return s.namesIn(s.d, tx, stmt)
}

func (s *DatastoreTestSuite) namesIn(d *Datastore, tx *transaction.Transaction, stmt executor.Statement) []string {
	cur, err := d.Execute(ctx, tx, stmt)
	s.Require().NoError(err)
	var res []string
	for cur.Next() {
		res = append(res, cur.Row().Value(0).String())
	}
	s.Require().NoError(cur.Err())
	return res
}

func byName(name string) executor.Statement {
	tree := condition.NewTree(domain.And)
	tree.Where(condition.Field("", "name"), domain.Equals, condition.Constant(domain.NewValue(name)))
	return executor.Statement{
		Schemas:    []executor.SchemaRef{{Name: "people"}},
		Fields:     []executor.FieldRef{executor.Column("", "name")},
		Conditions: tree,
	}
}

func (s *DatastoreTestSuite) TestInsertAndExecute() {
	tx := s.d.Begin()
	ptrs, err := s.d.Insert(ctx, tx, "people", M{"name": "ann", "age": 30}, M{"name": "bob", "age": 25})
	s.Require().NoError(err)
	s.Len(ptrs, 2)
	s.Require().NoError(tx.Commit())

	tx = s.d.Begin()
	cur, err := s.d.Execute(ctx, tx, byName("BOB"))
	s.Require().NoError(err)
	s.True(cur.Next())
	var out struct {
		Name string `gedbql:"name"`
	}
	s.Require().NoError(cur.Scan(ctx, &out))
	s.Equal("bob", out.Name)
	s.False(cur.Next())
	s.NoError(tx.Commit())
}

func (s *DatastoreTestSuite) TestRollbackRemovesDocuments() {
	_, err := s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("name"))
	s.Require().NoError(err)

	tx := s.d.Begin()
	_, err = s.d.Insert(ctx, tx, "people", M{"name": "ann"})
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	tx = s.d.Begin()
	s.Empty(s.names(tx, byName("ann")))
	s.Equal(0, s.d.Indexes("people")[0].Len())
}

func (s *DatastoreTestSuite) TestUncommittedInsertBlocksReaders() {
	writer := s.d.Begin()
	_, err := s.d.Insert(ctx, writer, "people", M{"name": "ann"})
	s.Require().NoError(err)

	reader := s.d.Begin()
	_, err = s.d.Execute(ctx, reader, byName("ann"))
	s.ErrorIs(err, domain.ErrLockNotAcquired)
	s.NoError(reader.Rollback())

	s.NoError(writer.Commit())
	reader = s.d.Begin()
	s.Equal([]string{"ann"}, s.names(reader, byName("ann")))

	families, err := s.reg.Gather()
	s.Require().NoError(err)
	found := false
	for _, f := range families {
		if f.GetName() == "gedbql_lock_timeouts_total" {
			found = true
			s.Equal(1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	s.True(found)
}

func (s *DatastoreTestSuite) TestEnsureIndex() {
	tx := s.d.Begin()
	_, err := s.d.Insert(ctx, tx, "people", M{"name": "ann"}, M{"name": "bob"}, M{"name": "ann"})
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	idx, err := s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("name"))
	s.Require().NoError(err)
	s.Equal(3, idx.Len())
	again, err := s.d.EnsureIndex(ctx, index.WithSchema("PEOPLE"), index.WithName("people_name"), index.WithAttributes("name"))
	s.Require().NoError(err)
	s.Same(idx, again)

	_, err = s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithName("uniq"), index.WithAttributes("name"), index.WithUnique(true))
	s.ErrorIs(err, index.ErrConstraintViolated)
	s.Len(s.d.Indexes("people"), 1)

	_, err = s.d.EnsureIndex(ctx, index.WithAttributes("name"))
	s.ErrorAs(err, &domain.ErrEngine{})

	tx = s.d.Begin()
	s.Equal([]string{"ann", "ann"}, s.names(tx, byName("ann")))
	var indexLocks []string
	for _, l := range s.d.Snapshot()[0].HeldLocks {
		if l.Granularity == domain.GranularityIndex {
			indexLocks = append(indexLocks, l.ObjectName)
		}
	}
	s.Equal([]string{"people.people_name"}, indexLocks)
}

func (s *DatastoreTestSuite) TestUniqueViolationOnInsert() {
	_, err := s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("email"), index.WithUnique(true))
	s.Require().NoError(err)
	_, err = s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("name"))
	s.Require().NoError(err)

	tx := s.d.Begin()
	_, err = s.d.Insert(ctx, tx, "people", M{"name": "ann", "email": "a@x"})
	s.Require().NoError(err)
	_, err = s.d.Insert(ctx, tx, "people", M{"name": "bob", "email": "A@X"})
	s.ErrorIs(err, index.ErrConstraintViolated)
	s.NoError(tx.Commit())

	for _, idx := range s.d.Indexes("people") {
		s.Equal(1, idx.Len(), idx.Name())
	}
	tx = s.d.Begin()
	s.Empty(s.names(tx, byName("bob")))
}

func (s *DatastoreTestSuite) TestLoad() {
	_, err := s.d.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("name"))
	s.Require().NoError(err)

	ptrs, err := s.d.Load(ctx, "people", strings.NewReader("{\"name\": \"ann\"}\n{\"name\": \"bob\"}\n"))
	s.Require().NoError(err)
	s.Len(ptrs, 2)
	s.Equal(2, s.d.Indexes("people")[0].Len())

	_, err = s.d.Load(ctx, "people", strings.NewReader("nope\n"))
	s.Error(err)
}

func (s *DatastoreTestSuite) TestSharedRegisterer() {
	other, err := NewDatastore(WithLogger(logging.Discard()), WithRegisterer(s.reg))
	s.Require().NoError(err)

	tx := other.Begin()
	_, err = other.Insert(ctx, tx, "people", M{"name": "ann"})
	s.Require().NoError(err)
	s.NoError(tx.Commit())
}

func (s *DatastoreTestSuite) TestTokenize() {
	tok, err := s.d.Tokenize("select * from people where age > 30 -- adults", nil)
	s.Require().NoError(err)
	s.Equal("select * from people where age > $n_0$", tok.Text())
	s.Len(tok.CacheKey(), 16)

	other, err := s.d.Tokenize("SELECT * FROM people WHERE age > 99", nil)
	s.Require().NoError(err)
	s.Equal(tok.CacheKey(), other.CacheKey())
}

func (s *DatastoreTestSuite) TestDiagnostics() {
	tx := s.d.Begin()
	_, err := s.d.Insert(ctx, tx, "people", M{"name": "ann"})
	s.Require().NoError(err)
	found, ok := s.d.Transaction(tx.ProcessID())
	s.True(ok)
	s.Same(tx, found)

	buf := new(bytes.Buffer)
	s.Require().NoError(s.d.ShowLocks(ctx, buf, tx.ProcessID()))
	s.Contains(buf.String(), "Intent")
	s.Contains(buf.String(), "people:0:1")
	s.Require().NoError(tx.Commit())

	buf.Reset()
	s.Require().NoError(s.d.ShowLocks(ctx, buf, 0))
	s.NotContains(buf.String(), "people")

	tx = s.d.Begin()
	tree := condition.NewTree(domain.And)
	tree.Where(condition.Field("", "age"), domain.GreaterThan, condition.Constant(domain.NewValue("1")))
	_, err = s.d.Execute(ctx, tx, executor.Statement{Schemas: []executor.SchemaRef{{Name: "people"}}, Conditions: tree})
	s.Require().NoError(err)
	buf.Reset()
	s.Require().NoError(s.d.ShowWarnings(ctx, buf, tx))
	s.Contains(buf.String(), "null disqualification")
}

func (s *DatastoreTestSuite) TestFunctions() {
	s.Require().NoError(s.d.Functions().Register(function.Definition{
		Name:   "Initial",
		Params: []function.Param{function.Required("text")},
		Scalar: func(args function.Arguments) (domain.Value, error) {
			raw, ok := args.Get("text").Raw()
			if !ok || raw == "" {
				return domain.Null(), nil
			}
			return domain.NewValue(raw[:1]), nil
		},
	}))

	tx := s.d.Begin()
	_, err := s.d.Insert(ctx, tx, "people", M{"name": "ann"}, M{"name": "bob"})
	s.Require().NoError(err)

	cur, err := s.d.Execute(ctx, tx, executor.Statement{
		Schemas: []executor.SchemaRef{{Name: "people"}},
		Fields: []executor.FieldRef{
			executor.Compute("i", "initial", executor.CallArg{Operand: condition.Field("", "name")}),
		},
		Sort: []executor.SortKey{{Operand: condition.Field("", "name"), Descending: true}},
	})
	s.Require().NoError(err)
	var got []string
	for cur.Next() {
		got = append(got, cur.Row().Value(0).String())
	}
	s.Equal([]string{"b", "a"}, got)
}

func (s *DatastoreTestSuite) datafileStore(filename string) *Datastore {
	cfg := config.Default()
	cfg.LockTimeout = 30 * time.Millisecond
	cfg.Storage.Datafile = filename
	d, err := NewDatastore(WithConfig(cfg), WithLogger(logging.Discard()))
	s.Require().NoError(err)
	return d
}

func (s *DatastoreTestSuite) TestDatafile() {
	filename := filepath.Join(s.T().TempDir(), "db", "data.db")

	d := s.datafileStore(filename)
	s.Require().NoError(d.LoadDatabase(ctx))

	tx := d.Begin()
	_, err := d.Insert(ctx, tx, "people", M{"name": "ann"}, M{"name": "bob"})
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	tx = d.Begin()
	_, err = d.Insert(ctx, tx, "people", M{"name": "cid"})
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	_, err = d.Load(ctx, "people", strings.NewReader("{\"name\": \"dan\"}\n"))
	s.Require().NoError(err)

	raw, err := os.ReadFile(filename)
	s.Require().NoError(err)
	s.Equal(3, strings.Count(string(raw), "\n"))
	s.NotContains(string(raw), "cid")

	reopened := s.datafileStore(filename)
	_, err = reopened.EnsureIndex(ctx, index.WithSchema("people"), index.WithAttributes("name"))
	s.Require().NoError(err)
	s.Require().NoError(reopened.LoadDatabase(ctx))
	s.Equal(3, reopened.Indexes("people")[0].Len())

	rtx := reopened.Begin()
	s.Equal([]string{"dan"}, s.namesIn(reopened, rtx, byName("dan")))
	s.Empty(s.namesIn(reopened, rtx, byName("cid")))
	s.Require().NoError(rtx.Commit())

	rtx = reopened.Begin()
	ptrs, err := reopened.Insert(ctx, rtx, "people", M{"name": "eve"})
	s.Require().NoError(err)
	s.Require().NoError(rtx.Commit())
	s.Equal(uint64(5), ptrs[0].DocumentID)

	s.Require().NoError(reopened.CompactDatafile(ctx))
	raw, err = os.ReadFile(filename)
	s.Require().NoError(err)
	s.Equal(4, strings.Count(string(raw), "\n"))
	s.Contains(string(raw), `"$schema":"people"`)
}

func (s *DatastoreTestSuite) TestWithoutDatafile() {
	s.NoError(s.d.LoadDatabase(ctx))
	s.NoError(s.d.CompactDatafile(ctx))

	cfg := config.Default()
	cfg.Storage.Datafile = filepath.Join(s.T().TempDir(), "data.db~")
	_, err := NewDatastore(WithConfig(cfg), WithLogger(logging.Discard()))
	s.ErrorAs(err, &domain.ErrDatafileName{})
}

func (s *DatastoreTestSuite) TestTimeGetter() {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d, err := NewDatastore(WithLogger(logging.Discard()), WithTimeGetter(fixedClock(at)))
	s.Require().NoError(err)
	s.Equal(at, d.Begin().StartedAt())
}

type fixedClock time.Time

func (c fixedClock) GetTime() time.Time { return time.Time(c) }

func TestDatastoreTestSuite(t *testing.T) {
	suite.Run(t, new(DatastoreTestSuite))
}
