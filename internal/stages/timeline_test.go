package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/pkg/domain"
)

func TestTimelineStage(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_timeline.txt": "data_filename: data_timeline.txt\n",
		"data_timeline.txt": lines(
			"PATIENT_ID\tSTART_DATE\tSTOP_DATE\tEVENT_TYPE\tTREATMENT_TYPE",
			"TCGA-A1-A0SB\t0\t30\tTREATMENT\tChemo",
			"TCGA-A1-A0SB\t45\tNA\tSTATUS\t",
			"TCGA-XX-0000\t10\t\tSTATUS\t",
			"TCGA-A1-A0SB\tday5\t\tSTATUS\t",
			"TCGA-A1-A0SB\t50\tlater\tSTATUS\t",
		),
	})
	p, err := f.store.AddPatient(context.Background(), domain.Patient{StableID: "TCGA-A1-A0SB", StudyID: f.study.ID})
	require.NoError(t, err)

	res := f.run(t, NewTimeline())
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.SkipReasons["unknown_patient"])
	assert.Equal(t, 1, res.SkipReasons["invalid_start_date"])
	assert.Equal(t, 1, res.SkipReasons["invalid_stop_date"])

	events := f.store.TimelineEvents(p.ID)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].StopDate)
	assert.Equal(t, 30, *events[0].StopDate)
	assert.Equal(t, map[string]string{"TREATMENT_TYPE": "Chemo"}, events[0].Data)
	assert.Equal(t, 45, events[1].StartDate)
	assert.Nil(t, events[1].StopDate)
	assert.Empty(t, events[1].Data)

	_, ok, err := f.store.GetPatientByStudy(context.Background(), "TCGA-XX-0000", f.study.ID)
	require.NoError(t, err)
	assert.False(t, ok, "timeline rows never create patients")
}

func TestTimelineRequiresColumns(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_timeline.txt": "data_filename: data_timeline.txt\n",
		"data_timeline.txt": lines("PATIENT_ID\tSTOP_DATE", "P1\t3"),
	})
	res := f.run(t, NewTimeline())
	assert.Zero(t, res.Imported)
	assert.Equal(t, 1, res.SkipReasons[reasonBadHeader])
}
