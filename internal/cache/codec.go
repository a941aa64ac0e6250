package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/idhash"
)

// SchemaVersion tags every blob. Bump it whenever a record layout changes;
// blobs carrying another version are stale and read as misses.
const SchemaVersion = 1

var magic = [4]byte{'S', 'G', 'F', 'C'}

const headerLen = len(magic) + 2

// Codec errors. Any of them makes a load a miss.
var (
	ErrBadMagic       = errors.New("not a cache blob")
	ErrSchemaVersion  = errors.New("stale cache schema version")
	ErrChecksum       = errors.New("cache payload checksum mismatch")
	ErrEntryMismatch  = errors.New("cache entry id mismatch")
	ErrTruncatedEntry = errors.New("truncated cache blob")
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// envelope wraps an encoded record with its address and integrity data.
type envelope struct {
	EntryID  string `cbor:"1,keyasint"`
	Checksum string `cbor:"2,keyasint"`
	Payload  []byte `cbor:"3,keyasint"`
}

// encode produces: magic | version (uint16 BE) | zstd(cbor(envelope)).
func encode(category, key string, v any) ([]byte, error) {
	payload, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	env, err := cbor.Marshal(envelope{
		EntryID:  idhash.ComputeEntryID(category, key, SchemaVersion),
		Checksum: idhash.Checksum(payload),
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	out := make([]byte, headerLen, headerLen+len(env)/2)
	copy(out, magic[:])
	binary.BigEndian.PutUint16(out[len(magic):], SchemaVersion)
	return encoder.EncodeAll(env, out), nil
}

// decode reverses encode and checks magic, version, address and checksum.
func decode(category, key string, blob []byte, v any) error {
	if len(blob) < headerLen {
		return ErrTruncatedEntry
	}
	if !bytes.Equal(blob[:len(magic)], magic[:]) {
		return ErrBadMagic
	}
	if version := binary.BigEndian.Uint16(blob[len(magic):headerLen]); version != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, version, SchemaVersion)
	}

	raw, err := decoder.DecodeAll(blob[headerLen:], nil)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}

	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.EntryID != idhash.ComputeEntryID(category, key, SchemaVersion) {
		return ErrEntryMismatch
	}
	if env.Checksum != idhash.Checksum(env.Payload) {
		return ErrChecksum
	}

	if err := cbor.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// metricsRecord is the columnar layout of domain.AggregatedMetrics:
// Values[m][r] is metric m for entity r.
type metricsRecord struct {
	TargetMonth  int         `cbor:"1,keyasint"`
	WindowMonths int         `cbor:"2,keyasint"`
	Months       []int       `cbor:"3,keyasint"`
	MetricNames  []string    `cbor:"4,keyasint"`
	EntityIDs    []string    `cbor:"5,keyasint"`
	Values       [][]float64 `cbor:"6,keyasint"`
}

func toMetricsRecord(a *domain.AggregatedMetrics) metricsRecord {
	rec := metricsRecord{
		TargetMonth:  a.TargetMonth,
		WindowMonths: a.WindowMonths,
		Months:       a.Months,
		MetricNames:  a.MetricNames,
		EntityIDs:    make([]string, len(a.Rows)),
		Values:       make([][]float64, len(a.MetricNames)),
	}
	for m := range rec.Values {
		rec.Values[m] = make([]float64, len(a.Rows))
	}
	for r, row := range a.Rows {
		rec.EntityIDs[r] = row.EntityID
		for m, v := range row.Values {
			rec.Values[m][r] = v
		}
	}
	return rec
}

func (rec metricsRecord) toDomain() (*domain.AggregatedMetrics, error) {
	if err := checkColumns(len(rec.EntityIDs), len(rec.MetricNames), rec.Values); err != nil {
		return nil, err
	}
	a := &domain.AggregatedMetrics{
		TargetMonth:  rec.TargetMonth,
		WindowMonths: rec.WindowMonths,
		Months:       rec.Months,
		MetricNames:  rec.MetricNames,
		Rows:         make([]domain.AggregatedRow, len(rec.EntityIDs)),
	}
	for r, id := range rec.EntityIDs {
		vals := make([]float64, len(rec.MetricNames))
		for m := range vals {
			vals[m] = rec.Values[m][r]
		}
		a.Rows[r] = domain.AggregatedRow{EntityID: id, Values: vals}
	}
	return a, nil
}

// snapshotRecord is the columnar layout of domain.Snapshot.
type snapshotRecord struct {
	BaseMonth       int         `cbor:"1,keyasint"`
	CurrentMonth    int         `cbor:"2,keyasint"`
	WindowMonths    int         `cbor:"3,keyasint"`
	MetricNames     []string    `cbor:"4,keyasint"`
	EntityIDs       []string    `cbor:"5,keyasint"`
	BaseSegments    []string    `cbor:"6,keyasint"`
	CurrentSegments []string    `cbor:"7,keyasint"`
	Statuses        []string    `cbor:"8,keyasint"`
	Base            [][]float64 `cbor:"9,keyasint"`
	Current         [][]float64 `cbor:"10,keyasint"`
}

func toSnapshotRecord(s *domain.Snapshot) snapshotRecord {
	n := len(s.Rows)
	rec := snapshotRecord{
		BaseMonth:       s.BaseMonth,
		CurrentMonth:    s.CurrentMonth,
		WindowMonths:    s.WindowMonths,
		MetricNames:     s.MetricNames,
		EntityIDs:       make([]string, n),
		BaseSegments:    make([]string, n),
		CurrentSegments: make([]string, n),
		Statuses:        make([]string, n),
		Base:            make([][]float64, len(s.MetricNames)),
		Current:         make([][]float64, len(s.MetricNames)),
	}
	for m := range s.MetricNames {
		rec.Base[m] = make([]float64, n)
		rec.Current[m] = make([]float64, n)
	}
	for r, row := range s.Rows {
		rec.EntityIDs[r] = row.EntityID
		rec.BaseSegments[r] = row.BaseSegment
		rec.CurrentSegments[r] = row.CurrentSegment
		rec.Statuses[r] = string(row.Status)
		for m := range s.MetricNames {
			rec.Base[m][r] = row.Base[m]
			rec.Current[m][r] = row.Current[m]
		}
	}
	return rec
}

func (rec snapshotRecord) toDomain() (*domain.Snapshot, error) {
	n := len(rec.EntityIDs)
	if len(rec.BaseSegments) != n || len(rec.CurrentSegments) != n || len(rec.Statuses) != n {
		return nil, fmt.Errorf("%w: segment columns", ErrTruncatedEntry)
	}
	if err := checkColumns(n, len(rec.MetricNames), rec.Base); err != nil {
		return nil, err
	}
	if err := checkColumns(n, len(rec.MetricNames), rec.Current); err != nil {
		return nil, err
	}

	s := &domain.Snapshot{
		BaseMonth:    rec.BaseMonth,
		CurrentMonth: rec.CurrentMonth,
		WindowMonths: rec.WindowMonths,
		MetricNames:  rec.MetricNames,
		Rows:         make([]domain.SnapshotRow, n),
	}
	for r := 0; r < n; r++ {
		status := domain.Status(rec.Statuses[r])
		if !status.IsValid() {
			return nil, fmt.Errorf("invalid status %q in cached snapshot", rec.Statuses[r])
		}
		row := domain.SnapshotRow{
			EntityID:       rec.EntityIDs[r],
			BaseSegment:    rec.BaseSegments[r],
			CurrentSegment: rec.CurrentSegments[r],
			Status:         status,
			Base:           make([]float64, len(rec.MetricNames)),
			Current:        make([]float64, len(rec.MetricNames)),
		}
		for m := range rec.MetricNames {
			row.Base[m] = rec.Base[m][r]
			row.Current[m] = rec.Current[m][r]
		}
		s.Rows[r] = row
	}
	return s, nil
}

func checkColumns(rows, metrics int, cols [][]float64) error {
	if len(cols) != metrics {
		return fmt.Errorf("%w: %d metric columns, want %d", ErrTruncatedEntry, len(cols), metrics)
	}
	for _, c := range cols {
		if len(c) != rows {
			return fmt.Errorf("%w: column length %d, want %d", ErrTruncatedEntry, len(c), rows)
		}
	}
	return nil
}
