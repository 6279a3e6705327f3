package stages

import (
	"context"
	"fmt"
	"strconv"

	"studyloader/internal/discovery"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

const (
	colStartDate = "START_DATE"
	colStopDate  = "STOP_DATE"
	colEventType = "EVENT_TYPE"
)

// TimelineStage imports dated clinical events of known patients.
type TimelineStage struct{}

// NewTimeline returns the timeline stage.
func NewTimeline() *TimelineStage { return &TimelineStage{} }

// Datatype implements pipeline.Stage.
func (s *TimelineStage) Datatype() string { return discovery.Timeline }

// Run implements pipeline.Stage. Events never create patients.
func (s *TimelineStage) Run(ctx context.Context, in pipeline.StageInput) (pipeline.StageResult, error) {
	res := pipeline.NewStageResult(discovery.Timeline)
	reg := newCases(in.Store, in.Study.ID)
	for _, key := range in.Record.DataFiles {
		if err := s.importFile(ctx, in, reg, key, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *TimelineStage) importFile(ctx context.Context, in pipeline.StageInput, reg *cases, key string, res *pipeline.StageResult) error {
	t, err := discovery.OpenTable(ctx, in.Staging, key)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	idx := t.ColumnIndex()
	patientCol := column(idx, colPatientID)
	startCol := column(idx, colStartDate)
	stopCol := column(idx, colStopDate)
	typeCol := column(idx, colEventType)
	if patientCol < 0 || startCol < 0 || typeCol < 0 {
		logger(in).Error("timeline file lacks required columns", "file", key)
		res.Skip(reasonBadHeader)
		return nil
	}

	var events []domain.TimelineEvent
	for t.Next() {
		if t.Blank() {
			res.Skip(reasonBlankLine)
			continue
		}
		f := t.Fields()
		patientID, ok, err := reg.lookupPatient(ctx, field(f, patientCol))
		if err != nil {
			return err
		}
		if !ok {
			res.Skip("unknown_patient")
			continue
		}
		start, err := strconv.Atoi(field(f, startCol))
		if err != nil {
			res.Skip("invalid_start_date")
			continue
		}
		ev := domain.TimelineEvent{PatientID: patientID, StartDate: start, EventType: field(f, typeCol)}
		if ev.EventType == "" {
			res.Skip("missing_event_type")
			continue
		}
		if v := field(f, stopCol); !isMissing(v) {
			stop, err := strconv.Atoi(v)
			if err != nil {
				res.Skip("invalid_stop_date")
				continue
			}
			ev.StopDate = &stop
		}
		for i, name := range t.Header {
			if i == patientCol || i == startCol || i == stopCol || i == typeCol {
				continue
			}
			if v := field(f, i); !isMissing(v) {
				if ev.Data == nil {
					ev.Data = map[string]string{}
				}
				ev.Data[name] = v
			}
		}
		events = append(events, ev)
		res.Imported++
	}
	if err := t.Err(); err != nil {
		return err
	}
	if err := in.Store.AddTimelineEvents(ctx, events); err != nil {
		return fmt.Errorf("add timeline events from %s: %w", key, err)
	}
	return nil
}
