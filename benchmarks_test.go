package gedbql_test

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"testing"

	"github.com/vinicius-lino-figueiredo/gedbql"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

type M = map[string]any

func newBenchEngine(b *testing.B) gedbql.Engine {
	db, err := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		b.Fatal(err)
	}
	return db
}

func BenchmarkCreate(b *testing.B) {
	for b.Loop() {
		_, _ = gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))
	}
}

func BenchmarkInsert(b *testing.B) {
	ctx := context.Background()
	db := newBenchEngine(b)

	for b.Loop() {
		tx := db.Begin()
		if _, err := db.Insert(ctx, tx, "bench", M{"jo": "jo"}); err != nil {
			b.Fatal(err)
		}
		_ = tx.Commit()
	}
}

func BenchmarkExecute(b *testing.B) {
	ctx := context.Background()

	sizes := [...]int{1, 10, 100, 1_000, 10_000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			for _, indexed := range []bool{false, true} {
				b.Run(fmt.Sprintf("indexed=%t", indexed), func(b *testing.B) {
					db := newBenchEngine(b)
					tx := db.Begin()
					docs := make([]any, size)
					for n := range size {
						docs[n] = M{"code": n}
					}
					if _, err := db.Insert(ctx, tx, "bench", docs...); err != nil {
						b.Fatal(err)
					}
					_ = tx.Commit()
					if indexed {
						if _, err := db.EnsureIndex(ctx, gedbql.WithIndexSchema("bench"), gedbql.WithIndexAttributes("code")); err != nil {
							b.Fatal(err)
						}
					}

					where := gedbql.NewConditions(domain.And)
					where.Where(gedbql.Field("", "code"), domain.Equals, gedbql.Parameter("code"))
					stmt := gedbql.Statement{
						Schemas:    []gedbql.SchemaRef{{Name: "bench"}},
						Fields:     []gedbql.FieldRef{gedbql.Column("", "code")},
						Conditions: where,
					}

					for b.Loop() {
						code := gedbql.NewValue(strconv.Itoa(rand.Intn(size)))
						tx := db.Begin()
						cur, err := db.Execute(ctx, tx, stmt, gedbql.WithParams(map[string]gedbql.Value{"code": code}))
						if err != nil {
							b.Fatal(err)
						}
						_ = cur.Close()
						_ = tx.Commit()
					}
				})
			}
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	db := newBenchEngine(b)
	query := "select name, Upper(city) from people p where (p.age >= 18 and p.name like 'a%') or p.id = 7 -- adults"

	for b.Loop() {
		if _, err := db.Tokenize(query, nil); err != nil {
			b.Fatal(err)
		}
	}
}
