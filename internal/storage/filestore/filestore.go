// Package filestore keeps bot data in plain files: a newline-delimited list of
// counterparty ids and two CSV tables for the catalog and the statistics.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/storage"
)

var (
	catalogHeader = []string{"coin", "day_price", "day_image", "week_price", "week_image", "month_price", "month_image"}
	statsHeader   = []string{"day", "week", "month", "total", "last_update_week"}
)

// Paths locates the three files managed by the store.
type Paths struct {
	Counterparties string
	Catalog        string
	Stats          string
}

// Store implements storage.Store on top of the local filesystem.
type Store struct {
	paths Paths
	mu    sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// New validates paths and returns a file-backed store.
func New(paths Paths) (*Store, error) {
	if strings.TrimSpace(paths.Counterparties) == "" ||
		strings.TrimSpace(paths.Catalog) == "" ||
		strings.TrimSpace(paths.Stats) == "" {
		return nil, errors.New("filestore: all file paths are required")
	}
	return &Store{paths: paths}, nil
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error { return nil }

// LoadCounterparties reads the id list. A missing file yields an empty list.
func (s *Store) LoadCounterparties(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := readOptional(s.paths.Counterparties)
	if err != nil || !ok {
		return nil, err
	}
	var ids []int64
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", storage.ErrMalformed, s.paths.Counterparties, line, err)
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.paths.Counterparties, err)
	}
	return ids, nil
}

// AppendCounterparty appends a single id line to the list.
func (s *Store) AppendCounterparty(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.paths.Counterparties
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", id); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}

// LoadCatalog parses the catalog table. A missing file yields an empty catalog.
func (s *Store) LoadCatalog(_ context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readTable(s.paths.Catalog, catalogHeader)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(rows))
	for i, row := range rows {
		item := domain.NewItem(row["coin"])
		if item.ID == "" {
			return nil, fmt.Errorf("%w: %s row %d: empty coin", storage.ErrMalformed, s.paths.Catalog, i+1)
		}
		for _, w := range domain.Windows {
			price, err := strconv.ParseFloat(strings.TrimSpace(row[string(w)+"_price"]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d %s_price: %v", storage.ErrMalformed, s.paths.Catalog, i+1, w, err)
			}
			item.Entries[w] = domain.Entry{Price: price, Image: row[string(w)+"_image"]}
		}
		items = append(items, item)
	}
	logger.Debug(context.Background(), "store", "catalog.loaded",
		slog.String("path", s.paths.Catalog),
		slog.Int("count", len(items)),
	)
	return items, nil
}

// SaveCatalog rewrites the catalog table atomically.
func (s *Store) SaveCatalog(_ context.Context, items []domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([][]string, 0, len(items))
	for _, it := range items {
		rec := []string{it.ID}
		for _, w := range domain.Windows {
			e := it.Entries[w]
			rec = append(rec, formatPrice(e.Price), e.Image)
		}
		records = append(records, rec)
	}
	return s.writeTable(s.paths.Catalog, catalogHeader, records)
}

// LoadStats parses the statistics table. A missing file yields zero counters.
func (s *Store) LoadStats(_ context.Context) (domain.StatsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.StatsRecord
	rows, err := s.readTable(s.paths.Stats, statsHeader)
	if err != nil {
		return rec, err
	}
	// The last row wins when the file carries more than one.
	for i, row := range rows {
		counters := make([]int64, 0, 4)
		for _, col := range statsHeader[:4] {
			n, err := strconv.ParseInt(strings.TrimSpace(row[col]), 10, 64)
			if err != nil {
				return domain.StatsRecord{}, fmt.Errorf("%w: %s row %d %s: %v", storage.ErrMalformed, s.paths.Stats, i+1, col, err)
			}
			counters = append(counters, n)
		}
		rec = domain.StatsRecord{
			Day:            counters[0],
			Week:           counters[1],
			Month:          counters[2],
			Total:          counters[3],
			LastUpdateWeek: row["last_update_week"],
		}
	}
	return rec, nil
}

// SaveStats rewrites the statistics table atomically.
func (s *Store) SaveStats(_ context.Context, rec domain.StatsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		strconv.FormatInt(rec.Day, 10),
		strconv.FormatInt(rec.Week, 10),
		strconv.FormatInt(rec.Month, 10),
		strconv.FormatInt(rec.Total, 10),
		rec.LastUpdateWeek,
	}
	return s.writeTable(s.paths.Stats, statsHeader, [][]string{row})
}

func (s *Store) readTable(path string, header []string) ([]map[string]string, error) {
	data, ok, err := readOptional(path)
	if err != nil || !ok {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	got, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", storage.ErrMalformed, path, err)
	}
	index := make(map[string]int, len(got))
	for i, col := range got {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range header {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", storage.ErrMalformed, path, col)
		}
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", storage.ErrMalformed, path, err)
		}
		row := make(map[string]string, len(header))
		for _, col := range header {
			if i := index[col]; i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) writeTable(path string, header []string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		logger.Error(context.Background(), "store", "file.write",
			slog.String("status", "fail"),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
