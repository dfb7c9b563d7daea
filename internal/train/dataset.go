package train

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// DatasetRow is one labeled run
type DatasetRow struct {
	RunID string
	Label int
}

// ParseLabel maps a raw label to 0/1. Uncertain and unparseable labels are
// reported as not ok so the caller can drop the row.
func ParseLabel(raw string) (int, bool) {
	return model.ParseTrueLabel(raw)
}

// LoadDataset reads a run_id,label CSV and returns its rows and raw bytes
func LoadDataset(path string) ([]DatasetRow, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset: %w", err)
	}
	rows, err := ParseDataset(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return rows, data, nil
}

// ParseDataset parses a CSV with run_id and label columns, in any order
func ParseDataset(r io.Reader) ([]DatasetRow, error) {
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

	runCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "run_id":
			runCol = i
		case "label":
			labelCol = i
		}
	}
	if runCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("dataset header must contain run_id and label, got %v", header)
	}

	var rows []DatasetRow
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if runCol >= len(rec) || labelCol >= len(rec) {
			continue
		}
		runID := strings.TrimSpace(rec[runCol])
		label, ok := ParseLabel(rec[labelCol])
		if runID == "" || !ok {
			continue
		}
		rows = append(rows, DatasetRow{RunID: runID, Label: label})
	}
	return rows, nil
}

// Split shuffles rows with a seeded generator and cuts them into train and
// validation sets. With more than one row both sides get at least one row.
func Split(rows []DatasetRow, ratio float64, seed uint64) (train, val []DatasetRow) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTrain := int(float64(len(rows)) * ratio)
	if nTrain < 1 {
		nTrain = 1
	}
	if len(rows) > 1 {
		nTrain = min(nTrain, len(rows)-1)
	} else {
		nTrain = len(rows)
	}

	for i, k := range idx {
		if i < nTrain {
			train = append(train, rows[k])
		} else {
			val = append(val, rows[k])
		}
	}
	return train, val
}
