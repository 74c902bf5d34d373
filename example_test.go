package gedbql_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinicius-lino-figueiredo/gedbql"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
)

func ExampleNewEngine() {
	// Settings come from a file and GEDBQL_ environment variables, or
	// from DefaultConfig when no file is used.
	cfg := gedbql.DefaultConfig()
	cfg.Storage.PageSize = 128

	db, err := gedbql.NewEngine(
		gedbql.WithConfig(cfg),
		// The logger is built from cfg.Log unless given here.
		gedbql.WithLogger(slog.New(slog.DiscardHandler)),
		// Lock metrics are left unregistered without a registerer.
		gedbql.WithRegisterer(nil),
	)
	if err != nil {
		panic(err)
	}

	tx := db.Begin()
	defer tx.Rollback()
	fmt.Println(tx.State())
	// Output: active
}

func ExampleEngine_Execute() {
	ctx := context.Background()
	db, _ := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))

	tx := db.Begin()
	_, _ = db.Insert(ctx, tx, "people",
		map[string]any{"name": "ann", "age": 30},
		map[string]any{"name": "bob", "age": 25},
		map[string]any{"name": "cid", "age": 41},
	)
	_ = tx.Commit()

	// Conditions are a tree of comparisons joined by AND or OR.
	where := gedbql.NewConditions(domain.And)
	where.Where(gedbql.Field("", "age"), domain.GreaterThan, gedbql.Parameter("min"))

	tx = db.Begin()
	defer tx.Commit()
	cur, err := db.Execute(ctx, tx, gedbql.Statement{
		Schemas:    []gedbql.SchemaRef{{Name: "people"}},
		Fields:     []gedbql.FieldRef{gedbql.Column("", "name"), gedbql.Column("", "age")},
		Conditions: where,
		Sort:       []gedbql.SortKey{{Operand: gedbql.Field("", "age"), Descending: true}},
	}, gedbql.WithParams(map[string]gedbql.Value{"min": gedbql.NewValue("26")}))
	if err != nil {
		panic(err)
	}
	defer cur.Close()

	var person struct {
		Name string `gedbql:"name"`
		Age  int    `gedbql:"age"`
	}
	for cur.Next() {
		if err := cur.Scan(ctx, &person); err != nil {
			panic(err)
		}
		fmt.Println(person.Name, person.Age)
	}
	// Output:
	// cid 41
	// ann 30
}

func ExampleEngine_EnsureIndex() {
	ctx := context.Background()
	db, _ := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))

	idx, err := db.EnsureIndex(ctx,
		gedbql.WithIndexSchema("people"),
		gedbql.WithIndexAttributes("email"),
		gedbql.WithIndexUnique(true),
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(idx.Name())

	tx := db.Begin()
	defer tx.Rollback()
	_, _ = db.Insert(ctx, tx, "people", map[string]any{"email": "ann@example.com"})
	_, err = db.Insert(ctx, tx, "people", map[string]any{"email": "ANN@example.com"})
	fmt.Println(err != nil)
	// Output:
	// people_email
	// true
}

func ExampleEngine_Execute_aggregate() {
	ctx := context.Background()
	db, _ := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))

	_, _ = db.Load(ctx, "orders", strings.NewReader(`{"item": "pen", "price": 2.5}
{"item": "book", "price": 12}
`))

	tx := db.Begin()
	defer tx.Commit()
	cur, _ := db.Execute(ctx, tx, gedbql.Statement{
		Schemas: []gedbql.SchemaRef{{Name: "orders"}},
		Fields: []gedbql.FieldRef{
			gedbql.Compute("orders", "Count"),
			gedbql.Compute("total", "Sum", gedbql.CallArg{Operand: gedbql.Field("", "price")}),
		},
	})
	defer cur.Close()

	cur.Next()
	fields, _ := cur.Fields()
	for name, value := range fields.Iter() {
		fmt.Println(name, value)
	}
	// Output:
	// orders 2
	// total 14.5
}

func ExampleEngine_ShowLocks() {
	ctx := context.Background()
	db, _ := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))

	tx := db.Begin()
	defer tx.Rollback()
	_, _ = db.Insert(ctx, tx, "people", map[string]any{"name": "ann"})

	_ = db.ShowLocks(ctx, os.Stdout, tx.ProcessID())
}

func ExampleEngine_Tokenize() {
	db, _ := gedbql.NewEngine(gedbql.WithLogger(slog.New(slog.DiscardHandler)))

	tok, err := db.Tokenize("SELECT name FROM people WHERE age > 30 /* adults */", nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(tok.Text())
	fmt.Println(tok.Inline(tok.Text()))
	// Output:
	// SELECT name FROM people WHERE age > $n_0$
	// SELECT name FROM people WHERE age > 30
}

func ExampleEngine_LoadDatabase() {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "gedbql")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	cfg := gedbql.DefaultConfig()
	cfg.Storage.Datafile = filepath.Join(dir, "data.db")
	open := func() gedbql.Engine {
		db, err := gedbql.NewEngine(gedbql.WithConfig(cfg), gedbql.WithLogger(slog.New(slog.DiscardHandler)))
		if err != nil {
			panic(err)
		}
		if err := db.LoadDatabase(ctx); err != nil {
			panic(err)
		}
		return db
	}

	db := open()
	tx := db.Begin()
	_, _ = db.Insert(ctx, tx, "people", map[string]any{"name": "ann"})
	_ = tx.Commit()

	// Documents inserted by a rolled back transaction never reach the file.
	tx = db.Begin()
	_, _ = db.Insert(ctx, tx, "people", map[string]any{"name": "bob"})
	_ = tx.Rollback()

	db = open()
	tx = db.Begin()
	defer tx.Commit()
	cur, _ := db.Execute(ctx, tx, gedbql.Statement{
		Schemas: []gedbql.SchemaRef{{Name: "people"}},
		Fields:  []gedbql.FieldRef{gedbql.Column("", "name")},
	})
	for cur.Next() {
		fmt.Println(cur.Row().Value(0))
	}
	// Output: ann
}
