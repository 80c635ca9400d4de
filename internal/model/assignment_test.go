package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAssignment() *Assignment {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Assignment{
		Subject:     "Math",
		Title:       "HW1",
		Description: "d",
		Marks:       10,
		StartDate:   start,
		DueDate:     start.AddDate(0, 1, 0),
		Class:       "V",
		Section:     "A",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validAssignment().Validate())

	a := validAssignment()
	a.DueDate = a.StartDate
	assert.NoError(t, a.Validate(), "due date equal to start date is allowed")

	a = validAssignment()
	a.DueDate = a.StartDate.Add(-time.Hour)
	var ve *ValidationError
	require.ErrorAs(t, a.Validate(), &ve)
	assert.Contains(t, ve.Fields, "dueDate")

	a = validAssignment()
	a.Marks = 0
	a.Title = ""
	a.Section = ""
	require.ErrorAs(t, a.Validate(), &ve)
	assert.Len(t, ve.Fields, 3)
	assert.Equal(t, "validation failed: marks, section, title", ve.Error())
}

func TestInputApplyKeepsStartDate(t *testing.T) {
	a := validAssignment()
	start := a.StartDate
	AssignmentInput{Subject: " Science ", Marks: 5, DueDate: start.AddDate(0, 0, 3)}.Apply(a)
	assert.Equal(t, "Science", a.Subject)
	assert.Equal(t, start, a.StartDate)
}

func TestFindSubmission(t *testing.T) {
	a := validAssignment()
	a.Submissions = []Submission{{StudentID: "s1"}, {StudentID: "s2"}}
	require.NotNil(t, a.FindSubmission("s2"))
	a.FindSubmission("s2").AwardedMarks = 4
	assert.Equal(t, 4, a.Submissions[1].AwardedMarks)
	assert.Nil(t, a.FindSubmission("s3"))
}

func TestDate(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2099-01-01"`), &d))
	assert.Equal(t, time.Date(2099, 1, 1, 0, 0, 0, 0, jakarta), d.In(jakarta))
	assert.Equal(t, time.Date(2099, 1, 1, 23, 59, 59, 0, jakarta), d.EndIn(jakarta))
	b, _ := json.Marshal(d)
	assert.Equal(t, `"2099-01-01"`, string(b))

	require.NoError(t, json.Unmarshal([]byte(`"2099-01-01T10:00:00Z"`), &d))
	assert.True(t, d.In(jakarta).Equal(time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, d.EndIn(jakarta).Equal(d.In(jakarta)))

	assert.Error(t, json.Unmarshal([]byte(`"01/01/2099"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`12`), &d))
}

func TestRequestDueTodayIsValid(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Now().In(jakarta)

	var due Date
	require.NoError(t, json.Unmarshal([]byte(`"`+now.Format("2006-01-02")+`"`), &due))
	req := AssignmentRequest{Subject: "Math", Title: "HW1", Description: "d", Marks: 10, DueDate: &due, Class: "V", Section: "A"}

	a := &Assignment{StartDate: now.UTC()}
	req.Input(jakarta).Apply(a)
	assert.NoError(t, a.Validate())
	assert.Equal(t, now.Format("2006-01-02"), a.DueDate.In(jakarta).Format("2006-01-02"))
}
