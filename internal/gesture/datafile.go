package gesture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// fileHeaderV1 identifies the self-describing text format used to exchange
// recorded datasets between sessions and tools.
const fileHeaderV1 = "MUDRA_TIME_SERIES_DATASET_V1"

// Save writes the dataset to w in a line-oriented text format: a header
// block describing the dataset followed by one block per sample. Float
// values are written with full precision so a save/load round trip
// reproduces the dataset exactly.
func (d *Dataset) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, fileHeaderV1)
	fmt.Fprintf(bw, "DatasetName: %s\n", d.name)
	fmt.Fprintf(bw, "NumDimensions: %d\n", d.dims)
	fmt.Fprintf(bw, "TotalNumSamples: %d\n", len(d.samples))

	labels := d.ClassLabels()
	fmt.Fprintf(bw, "NumClasses: %d\n", len(labels))
	fmt.Fprintln(bw, "ClassLabelsAndCounts:")
	for _, label := range labels {
		fmt.Fprintf(bw, "%d\t%d\n", label, d.CountPerClass(label))
	}

	fmt.Fprintln(bw, "Data:")
	for _, s := range d.samples {
		fmt.Fprintf(bw, "ClassLabel: %d\n", s.Label)
		fmt.Fprintf(bw, "SeriesLength: %d\n", len(s.Series))
		for _, v := range s.Series {
			for i, x := range v {
				if i > 0 {
					bw.WriteByte('\t')
				}
				bw.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			}
			bw.WriteByte('\n')
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// SaveFile writes the dataset to the named file, replacing any existing
// content.
func (d *Dataset) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if err := d.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a dataset previously written by Save. The declared sample
// counts, class counts, and dimensionality are all verified against the
// data that follows.
func Load(r io.Reader) (*Dataset, error) {
	lr := &lineReader{sc: bufio.NewScanner(r)}
	lr.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	header, err := lr.next()
	if err != nil {
		return nil, err
	}
	if header != fileHeaderV1 {
		return nil, fmt.Errorf("%w: unknown header %q", ErrInvalidDataFile, header)
	}

	name, err := lr.field("DatasetName")
	if err != nil {
		return nil, err
	}
	dims, err := lr.intField("NumDimensions")
	if err != nil {
		return nil, err
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: NumDimensions must be > 0, got %d", ErrInvalidDataFile, dims)
	}
	total, err := lr.intField("TotalNumSamples")
	if err != nil {
		return nil, err
	}
	numClasses, err := lr.intField("NumClasses")
	if err != nil {
		return nil, err
	}

	if err := lr.expect("ClassLabelsAndCounts:"); err != nil {
		return nil, err
	}
	declared := make(map[uint64]int, numClasses)
	for i := 0; i < numClasses; i++ {
		line, err := lr.next()
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected \"label count\", got %q", ErrInvalidDataFile, lr.line, line)
		}
		label, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad class label %q", ErrInvalidDataFile, lr.line, parts[0])
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad class count %q", ErrInvalidDataFile, lr.line, parts[1])
		}
		declared[label] = count
	}

	if err := lr.expect("Data:"); err != nil {
		return nil, err
	}

	d := NewDataset(dims)
	d.SetName(name)
	for i := 0; i < total; i++ {
		label, err := lr.uintField("ClassLabel")
		if err != nil {
			return nil, err
		}
		length, err := lr.intField("SeriesLength")
		if err != nil {
			return nil, err
		}
		if length <= 0 {
			return nil, fmt.Errorf("%w: line %d: SeriesLength must be > 0, got %d", ErrInvalidDataFile, lr.line, length)
		}
		series := make(TimeSeries, 0, length)
		for j := 0; j < length; j++ {
			line, err := lr.next()
			if err != nil {
				return nil, err
			}
			fields := strings.Fields(line)
			if len(fields) != dims {
				return nil, fmt.Errorf("%w: line %d: expected %d values, got %d", ErrInvalidDataFile, lr.line, dims, len(fields))
			}
			v := make(Vector, dims)
			for k, field := range fields {
				x, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad value %q", ErrInvalidDataFile, lr.line, field)
				}
				v[k] = x
			}
			series = append(series, v)
		}
		if err := d.AddSample(label, series); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	for label, count := range declared {
		if got := d.CountPerClass(label); got != count {
			return nil, fmt.Errorf("%w: class %d declares %d samples, found %d", ErrInvalidDataFile, label, count, got)
		}
	}
	if d.NumClasses() != numClasses {
		return nil, fmt.Errorf("%w: header declares %d classes, found %d", ErrInvalidDataFile, numClasses, d.NumClasses())
	}
	return d, nil
}

// LoadFile reads a dataset from the named file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// lineReader walks a dataset file line by line, tracking the line number
// for error reporting.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func (lr *lineReader) next() (string, error) {
	if !lr.sc.Scan() {
		if err := lr.sc.Err(); err != nil {
			return "", fmt.Errorf("read dataset: %w", err)
		}
		return "", fmt.Errorf("%w: unexpected end of file after line %d", ErrInvalidDataFile, lr.line)
	}
	lr.line++
	return strings.TrimRight(lr.sc.Text(), "\r\n"), nil
}

func (lr *lineReader) expect(literal string) error {
	line, err := lr.next()
	if err != nil {
		return err
	}
	if strings.TrimSpace(line) != literal {
		return fmt.Errorf("%w: line %d: expected %q, got %q", ErrInvalidDataFile, lr.line, literal, line)
	}
	return nil
}

func (lr *lineReader) field(key string) (string, error) {
	line, err := lr.next()
	if err != nil {
		return "", err
	}
	prefix := key + ":"
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("%w: line %d: expected %q field, got %q", ErrInvalidDataFile, lr.line, key, line)
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), nil
}

func (lr *lineReader) intField(key string) (int, error) {
	raw, err := lr.field(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s is not an integer: %q", ErrInvalidDataFile, lr.line, key, raw)
	}
	return n, nil
}

func (lr *lineReader) uintField(key string) (uint64, error) {
	raw, err := lr.field(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s is not an unsigned integer: %q", ErrInvalidDataFile, lr.line, key, raw)
	}
	return n, nil
}
