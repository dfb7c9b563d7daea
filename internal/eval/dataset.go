package eval

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// ClaimRow is one labeled claim of an evaluation or benchmark dataset
type ClaimRow struct {
	ClaimID   string
	ClaimText string
	QueryText string
	Label     int
}

// LoadClaims reads a claim dataset and returns its rows and raw bytes
func LoadClaims(path string) ([]ClaimRow, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset: %w", err)
	}
	rows, err := ParseClaims(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return rows, data, nil
}

// ParseClaims parses a CSV with claim_text and label columns. claim_id and
// query_text are optional; a missing claim_id becomes the 1-based row number.
// Rows with a blank claim or an unparseable label are dropped.
func ParseClaims(r io.Reader) ([]ClaimRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	textCol, okText := cols["claim_text"]
	labelCol, okLabel := cols["label"]
	if !okText || !okLabel {
		return nil, fmt.Errorf("dataset header must contain claim_text and label, got %v", header)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []ClaimRow
	for n := 1; ; n++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n, err)
		}
		if textCol >= len(rec) || labelCol >= len(rec) {
			continue
		}
		label, ok := model.ParseTrueLabel(rec[labelCol])
		text := strings.TrimSpace(rec[textCol])
		if !ok || text == "" {
			continue
		}
		id := field(rec, "claim_id")
		if id == "" {
			id = strconv.Itoa(n)
		}
		rows = append(rows, ClaimRow{
			ClaimID:   id,
			ClaimText: text,
			QueryText: field(rec, "query_text"),
			Label:     label,
		})
	}
	return rows, nil
}

// Sample returns at most n rows drawn by a seeded shuffle; n <= 0 keeps all
// rows in file order
func Sample(rows []ClaimRow, n int, seed uint64) []ClaimRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	out := append([]ClaimRow(nil), rows...)
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:n]
}
