package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-till/internal/domain/voucher"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
)

var errMalformed = errors.New("malformed voucher row")

// voucherWriter persists a batch of vouchers.
type voucherWriter interface {
	Upsert(ctx context.Context, vouchers []voucher.Voucher) error
}

type stats struct {
	rows       uint64
	written    uint64
	duplicates uint64
	malformed  uint64
}

// fileIndex is the pass 1 summary of one file: bloom filters over its codes
// and GUIDs, plus the identifiers it repeats itself.
type fileIndex struct {
	codes, guids                 *bloom.BloomFilter
	repeatedCodes, repeatedGUIDs map[string]struct{}
}

// claims reports whether the file may contain code or guid.
func (x *fileIndex) claims(v voucher.Voucher) bool {
	return x.codes.TestString(v.Code) || x.guids.TestString(v.GUID)
}

// repeats reports whether the file itself holds v's code or GUID twice.
func (x *fileIndex) repeats(v voucher.Voucher) bool {
	_, code := x.repeatedCodes[v.Code]
	_, guid := x.repeatedGUIDs[v.GUID]
	return code || guid
}

// ingester imports voucher batch files. A voucher whose code or GUID occurs
// more than once, within one file or across files, is ambiguous and dropped
// together with every row it collides with.
type ingester struct {
	files     []string
	expected  uint
	batchSize int
	repo      voucherWriter
	lg        *zap.Logger

	rows, written, malformed atomic.Uint64
}

// Run imports every file and returns the counters.
func (in *ingester) Run(ctx context.Context) (stats, error) {
	if in.batchSize <= 0 {
		in.batchSize = 1000
	}
	if in.expected == 0 {
		in.expected = 1_000_000
	}

	// Pass 1: bloom filters per file, plus identifiers repeated inside a file.
	in.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(in.files)))
	index, err := in.buildIndex(ctx)
	if err != nil {
		return stats{}, errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: stream unique rows to the database, hold back candidates.
	in.lg.Info("Pass 2: writing unique vouchers")
	candidates, err := in.writeUnique(ctx, index)
	if err != nil {
		return stats{}, errors.Wrap(err, "write vouchers")
	}

	// Every row sharing an identifier with another row is a candidate, so
	// exact counts over the candidates settle the bloom false positives.
	codes := make(map[string]int)
	guids := make(map[string]int)
	total := 0
	for _, perFile := range candidates {
		for _, v := range perFile {
			codes[v.Code]++
			guids[v.GUID]++
			total++
		}
	}
	var (
		rescued    []voucher.Voucher
		duplicates uint64
	)
	for _, perFile := range candidates {
		for _, v := range perFile {
			if codes[v.Code] == 1 && guids[v.GUID] == 1 {
				rescued = append(rescued, v)
				continue
			}
			duplicates++
		}
	}
	for start := 0; start < len(rescued); start += in.batchSize {
		batch := rescued[start:min(start+in.batchSize, len(rescued))]
		if err := in.repo.Upsert(ctx, batch); err != nil {
			return stats{}, errors.Wrap(err, "upsert rescued vouchers")
		}
		in.written.Add(uint64(len(batch)))
	}
	in.lg.Info("Candidates resolved",
		zap.Int("candidates", total),
		zap.Int("rescued", len(rescued)),
		zap.Uint64("duplicates", duplicates),
	)

	return stats{
		rows:       in.rows.Load(),
		written:    in.written.Load(),
		duplicates: duplicates,
		malformed:  in.malformed.Load(),
	}, nil
}

func (in *ingester) buildIndex(ctx context.Context) ([]*fileIndex, error) {
	index := make([]*fileIndex, len(in.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range in.files {
		g.Go(func() error {
			x := &fileIndex{
				codes:         bloom.NewWithEstimates(in.expected, bloomFPR),
				guids:         bloom.NewWithEstimates(in.expected, bloomFPR),
				repeatedCodes: make(map[string]struct{}),
				repeatedGUIDs: make(map[string]struct{}),
			}
			var count uint64
			if err := streamRows(ctx, path, func(line string) {
				v, err := parseRow(line)
				if err != nil {
					return
				}
				if x.codes.TestAndAddString(v.Code) {
					x.repeatedCodes[v.Code] = struct{}{}
				}
				if x.guids.TestAndAddString(v.GUID) {
					x.repeatedGUIDs[v.GUID] = struct{}{}
				}
				if count++; count%progressEvery == 0 {
					in.lg.Info("Pass 1 progress", zap.String("file", path), zap.Uint64("rows", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			in.lg.Info("Pass 1 complete",
				zap.String("file", path),
				zap.Uint64("rows", count),
				zap.Int("repeated_codes", len(x.repeatedCodes)),
				zap.Int("repeated_guids", len(x.repeatedGUIDs)),
			)
			index[i] = x
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return index, nil
}

func (in *ingester) writeUnique(ctx context.Context, index []*fileIndex) ([][]voucher.Voucher, error) {
	candidates := make([][]voucher.Voucher, len(in.files))
	out := make(chan voucher.Voucher, in.batchSize)

	g, gctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(gctx)
	for i, path := range in.files {
		readers.Go(func() error {
			var (
				held    []voucher.Voucher
				sendErr error
			)
			err := streamRows(rctx, path, func(line string) {
				if sendErr != nil {
					return
				}
				in.rows.Add(1)
				v, err := parseRow(line)
				if err != nil {
					in.malformed.Add(1)
					in.lg.Debug("Skipping row", zap.String("file", path), zap.Error(err))
					return
				}
				if possiblyRepeated(v, i, index) {
					held = append(held, v)
					return
				}
				select {
				case out <- v:
				case <-rctx.Done():
					sendErr = rctx.Err()
				}
			})
			if err == nil {
				err = sendErr
			}
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			candidates[i] = held
			return nil
		})
	}
	g.Go(func() error {
		defer close(out)
		return readers.Wait()
	})
	g.Go(func() error {
		return in.write(gctx, out)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// write upserts vouchers from out in batches until out is closed.
func (in *ingester) write(ctx context.Context, out <-chan voucher.Voucher) error {
	batch := make([]voucher.Voucher, 0, in.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := in.repo.Upsert(ctx, batch); err != nil {
			return errors.Wrap(err, "upsert batch")
		}
		n := in.written.Add(uint64(len(batch)))
		if n%uint64(progressEvery) < uint64(len(batch)) {
			in.lg.Info("Write progress", zap.Uint64("written", n))
		}
		batch = batch[:0]
		return nil
	}
	for v := range out {
		batch = append(batch, v)
		if len(batch) == in.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// possiblyRepeated reports whether v's code or GUID may occur in another row:
// in another file or a second time in file idx.
func possiblyRepeated(v voucher.Voucher, idx int, index []*fileIndex) bool {
	if index[idx].repeats(v) {
		return true
	}
	for j, x := range index {
		if j != idx && x.claims(v) {
			return true
		}
	}
	return false
}

// parseRow parses code,guid,type,value[,minimum].
func parseRow(line string) (voucher.Voucher, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 && len(fields) != 5 {
		return voucher.Voucher{}, errors.Wrapf(errMalformed, "want 4 or 5 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	v := voucher.Voucher{
		Code: strings.ToUpper(fields[0]),
		Type: voucher.Type(strings.ToLower(fields[2])),
	}
	if v.Code == "" {
		return voucher.Voucher{}, errors.Wrap(errMalformed, "empty code")
	}
	guid, err := uuid.Parse(fields[1])
	if err != nil {
		return voucher.Voucher{}, errors.Wrapf(errMalformed, "guid of %s: %s", v.Code, err)
	}
	v.GUID = guid.String()
	if !v.Type.Valid() {
		return voucher.Voucher{}, errors.Wrapf(errMalformed, "type of %s: %q", v.Code, fields[2])
	}
	if v.Value, err = decimal.NewFromString(fields[3]); err != nil || !v.Value.IsPositive() {
		return voucher.Voucher{}, errors.Wrapf(errMalformed, "value of %s: %q", v.Code, fields[3])
	}
	if len(fields) == 5 && fields[4] != "" {
		minimum, err := decimal.NewFromString(fields[4])
		if err != nil || minimum.IsNegative() {
			return voucher.Voucher{}, errors.Wrapf(errMalformed, "minimum of %s: %q", v.Code, fields[4])
		}
		v.MinimumOrderAmount = decimal.NewNullDecimal(minimum)
	}
	return v, nil
}

// streamRows opens a gzip-compressed file and calls fn for each data line.
// Blank lines and a leading header row are skipped.
func streamRows(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	first := true
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if strings.HasPrefix(strings.ToLower(line), "code,") {
				continue
			}
		}
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
