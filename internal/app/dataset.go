package app

import (
	"fmt"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// LoadDataset assembles a training dataset from the stored samples of the
// dataset with the given ID.
func LoadDataset(st *store.Store, datasetID string) (*gesture.Dataset, error) {
	meta, err := st.Datasets().GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	rows, err := st.Samples().ListByDataset(datasetID)
	if err != nil {
		return nil, err
	}

	ds := gesture.NewDataset(meta.Dimensions)
	ds.SetName(meta.Name)
	for _, row := range rows {
		if err := ds.AddSample(row.Label, rowsToSeries(row.Series)); err != nil {
			return nil, fmt.Errorf("app: sample %d of dataset %q: %w", row.ID, meta.Name, err)
		}
	}
	return ds, nil
}

// SaveDataset persists all samples of ds as a new stored dataset with the
// given ID and name.
func SaveDataset(st *store.Store, id, name string, ds *gesture.Dataset) (*store.Dataset, error) {
	meta := &store.Dataset{ID: id, Name: name, Dimensions: ds.NumDimensions()}
	if err := st.Datasets().Create(meta); err != nil {
		return nil, err
	}

	samples := ds.Samples()
	if len(samples) > 0 {
		inputs := make([]store.SampleInput, 0, len(samples))
		for _, s := range samples {
			inputs = append(inputs, store.SampleInput{Label: s.Label, Series: seriesToRows(s.Series)})
		}
		if err := st.Samples().Create(id, inputs); err != nil {
			return nil, err
		}
	}

	return st.Datasets().GetByID(id)
}

// rowsToSeries converts stored sample rows to a gesture.TimeSeries.
func rowsToSeries(rows [][]float64) gesture.TimeSeries {
	series := make(gesture.TimeSeries, len(rows))
	for i, row := range rows {
		series[i] = gesture.Vector(row)
	}
	return series
}

// seriesToRows converts a gesture.TimeSeries to storable sample rows.
func seriesToRows(series gesture.TimeSeries) [][]float64 {
	rows := make([][]float64, len(series))
	for i, v := range series {
		rows[i] = []float64(v.Clone())
	}
	return rows
}
