package timescaledb

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/schema"

	"github.com/chrissnell/gravnoise/internal/storage"
)

var (
	_ schema.Tabler = runModel{}
	_ schema.Tabler = dayRecordModel{}
	_ schema.Tabler = psdBinModel{}
)

type runModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Station           string    `gorm:"not null;index"`
	CreatedAt         time.Time `gorm:"not null;index"`
	Samples           int       `gorm:"not null"`
	Dropped           int       `gorm:"not null"`
	BandLow           float64   `gorm:"not null"`
	BandHigh          float64   `gorm:"not null"`
	CalibrationOffset float64   `gorm:"not null"`

	Records []dayRecordModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Bins    []psdBinModel    `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (runModel) TableName() string { return "runs" }

type dayRecordModel struct {
	RunID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DayIndex     int       `gorm:"primaryKey;autoIncrement:false"`
	MeanPSD      *float64  `gorm:"column:mean_psd"`
	SNM          *float64  `gorm:"column:snm"`
	BandBins     int       `gorm:"not null"`
	SelectedRank *int
}

func (dayRecordModel) TableName() string { return "day_records" }

type psdBinModel struct {
	RunID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Bin       int       `gorm:"primaryKey;autoIncrement:false"`
	Frequency float64   `gorm:"not null"`
	Power     float64   `gorm:"not null"`
}

func (psdBinModel) TableName() string { return "psd_bins" }

func toModel(run *storage.Run) *runModel {
	m := &runModel{
		ID:                run.ID,
		Station:           run.Station,
		CreatedAt:         run.CreatedAt,
		Samples:           run.Samples,
		Dropped:           run.Dropped,
		BandLow:           run.BandLow,
		BandHigh:          run.BandHigh,
		CalibrationOffset: run.CalibrationOffset,
	}

	ranks := run.SelectedRanks()
	for _, rec := range run.Records {
		dm := dayRecordModel{
			RunID:    run.ID,
			DayIndex: rec.DayIndex,
			MeanPSD:  rec.MeanPSD,
			SNM:      rec.SNM,
			BandBins: rec.BandBins,
		}
		if r, ok := ranks[rec.DayIndex]; ok {
			dm.SelectedRank = &r
		}
		m.Records = append(m.Records, dm)
	}

	for i, b := range run.PSD {
		m.Bins = append(m.Bins, psdBinModel{
			RunID:     run.ID,
			Bin:       i,
			Frequency: b.Frequency,
			Power:     b.Power,
		})
	}

	return m
}

// fromModel converts m back into a run. Records must be ordered by day and
// bins by index; the selection order is rebuilt from the stored ranks.
func fromModel(m *runModel) *storage.Run {
	run := &storage.Run{
		ID:                m.ID,
		Station:           m.Station,
		CreatedAt:         m.CreatedAt.UTC(),
		Samples:           m.Samples,
		Dropped:           m.Dropped,
		BandLow:           m.BandLow,
		BandHigh:          m.BandHigh,
		CalibrationOffset: m.CalibrationOffset,
	}

	selected := make([]int, 0)
	ranked := make(map[int]int)
	for _, dm := range m.Records {
		run.Records = append(run.Records, storage.DayRecord{
			DayIndex: dm.DayIndex,
			MeanPSD:  dm.MeanPSD,
			SNM:      dm.SNM,
			BandBins: dm.BandBins,
		})
		if dm.SelectedRank != nil {
			ranked[*dm.SelectedRank] = dm.DayIndex
		}
	}
	for r := 0; r < len(ranked); r++ {
		if d, ok := ranked[r]; ok {
			selected = append(selected, d)
		}
	}
	run.Selected = selected

	for _, b := range m.Bins {
		run.PSD = append(run.PSD, storage.PSDBin{Frequency: b.Frequency, Power: b.Power})
	}

	return run
}
