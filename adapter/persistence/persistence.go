// Package persistence keeps documents in an append-only datafile of JSON
// lines.
package persistence

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/data"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/gedbql/adapter/storage"
	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/ctxsync"
)

// Default permissions of the datafile and its directory.
const (
	DefaultDirMode  os.FileMode = 0o755
	DefaultFileMode os.FileMode = 0o644
)

// Persistence writes document records to a datafile. New state is appended,
// deletions are appended as tombstones and compaction rewrites the file with
// the live documents only.
type Persistence struct {
	filename              string
	corruptAlertThreshold float64
	fileMode              os.FileMode
	dirMode               os.FileMode
	serializer            domain.Serializer
	deserializer          domain.Deserializer
	storage               domain.Storage
	logger                *slog.Logger

	mu        sync.Mutex
	compacted ctxsync.Broadcaster
}

// NewPersistence returns a persistence over the datafile set by
// [WithFilename].
func NewPersistence(options ...Option) (*Persistence, error) {
	p := &Persistence{
		corruptAlertThreshold: 0.1,
		fileMode:              DefaultFileMode,
		dirMode:               DefaultDirMode,
		serializer:            serializer.NewSerializer(),
		deserializer:          deserializer.NewDeserializer(),
		storage:               storage.NewStorage(),
		logger:                slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(p)
	}

	if p.filename == "" {
		return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot be empty"}
	}
	if strings.HasSuffix(p.filename, "~") {
		return nil, domain.ErrDatafileName{Name: p.filename, Reason: "cannot end with '~', reserved for backup files"}
	}
	return p, nil
}

// Filename returns the datafile path.
func (p *Persistence) Filename() string {
	return p.filename
}

// PersistNewState appends records to the datafile.
func (p *Persistence) PersistNewState(ctx context.Context, recs ...domain.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	toPersist := new(bytes.Buffer)
	wr := contextio.NewWriter(ctx, toPersist)
	for _, rec := range recs {
		b, err := p.serializer.Serialize(ctx, rec)
		if err != nil {
			return err
		}
		if _, err := wr.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	if toPersist.Len() == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.storage.AppendFile(p.filename, p.fileMode, toPersist.Bytes())
	return err
}

// TreatRawStream replays the records of a datafile. Later records for a
// pointer replace earlier ones and tombstones remove them. The live records
// are returned ordered by schema, page and id.
func (p *Persistence) TreatRawStream(ctx context.Context, rawStream io.Reader) ([]domain.Record, error) {
	byPointer := make(map[domain.DocumentPointer]domain.Record)
	corruptItems, dataLength := 0, 0

	lines := data.NewLineScanner(contextio.NewReader(ctx, rawStream))
	for lines.Scan() {
		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}
		dataLength++
		rec, err := p.deserializer.Deserialize(ctx, line)
		if err != nil {
			corruptItems++
			continue
		}
		key := rec.Pointer
		key.Schema = domain.Fold(key.Schema)
		if rec.Deleted {
			delete(byPointer, key)
			continue
		}
		byPointer[key] = rec
	}
	if err := lines.Err(); err != nil {
		return nil, err
	}

	if dataLength > 0 {
		rate := float64(corruptItems) / float64(dataLength)
		if rate > p.corruptAlertThreshold {
			return nil, domain.ErrCorruptDocuments{
				CorruptionRate: rate,
				CorruptItems:   corruptItems,
				DataLength:     dataLength,
				Threshold:      p.corruptAlertThreshold,
			}
		}
		if corruptItems > 0 {
			p.logger.Warn("skipped corrupt datafile lines",
				slog.String("file", p.filename),
				slog.Int("corrupt", corruptItems),
				slog.Int("total", dataLength),
			)
		}
	}

	res := make([]domain.Record, 0, len(byPointer))
	for _, rec := range byPointer {
		res = append(res, rec)
	}
	slices.SortFunc(res, func(a, b domain.Record) int {
		return cmp.Or(
			strings.Compare(domain.Fold(a.Pointer.Schema), domain.Fold(b.Pointer.Schema)),
			cmp.Compare(a.Pointer.Page, b.Pointer.Page),
			cmp.Compare(a.Pointer.DocumentID, b.Pointer.DocumentID),
		)
	})
	return res, nil
}

// LoadDatabase reads the datafile, creating it if needed, and compacts it.
// A backup left by an interrupted compaction is restored first.
func (p *Persistence) LoadDatabase(ctx context.Context) ([]domain.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := p.storage.EnsureParentDirectoryExists(p.filename, p.dirMode); err != nil {
		return nil, err
	}
	if err := p.storage.EnsureDatafileIntegrity(p.filename, p.fileMode); err != nil {
		return nil, err
	}

	stream, err := p.storage.ReadFileStream(p.filename, p.fileMode)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	recs, err := p.TreatRawStream(ctx, stream)
	if err != nil {
		return nil, err
	}
	if err := p.PersistCachedDatabase(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// PersistCachedDatabase replaces the datafile content with recs.
func (p *Persistence) PersistCachedDatabase(ctx context.Context, recs []domain.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	lines := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		if rec.Deleted {
			continue
		}
		b, err := p.serializer.Serialize(ctx, rec)
		if err != nil {
			return err
		}
		lines = append(lines, b)
	}

	start := time.Now()
	p.mu.Lock()
	err := p.storage.CrashSafeWriteFileLines(p.filename, lines, p.dirMode, p.fileMode)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.logger.Debug("datafile compacted",
		slog.String("file", p.filename),
		slog.Int("documents", len(lines)),
		slog.Duration("elapsed", time.Since(start)),
	)
	p.compacted.Broadcast()
	return nil
}

// WaitCompaction blocks until the next compaction finishes or ctx is done.
func (p *Persistence) WaitCompaction(ctx context.Context) error {
	return ctxsync.Wait(ctx, p.compacted.Changed(), time.Time{})
}

// DropDatabase removes the datafile, if any.
func (p *Persistence) DropDatabase(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	exists, err := p.storage.Exists(p.filename)
	if err != nil || !exists {
		return err
	}
	return p.storage.Remove(p.filename)
}
