package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportExams_CreatesThenReplaces(t *testing.T) {
	ctx := context.Background()
	service := orchestration.NewService(memstore.New(), nil)

	reqs, err := parseExamFile([]byte(seedYAML))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, importExams(ctx, service, reqs, &out))
	assert.Contains(t, out.String(), "2 created, 0 replaced")

	renamed, err := parseExamFile([]byte("exams:\n  - {slug: jee-main, name: JEE Main 2027, url: https://jeemain.example.org/v2}\n"))
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, importExams(ctx, service, renamed, &out))
	assert.Contains(t, out.String(), "0 created, 1 replaced")

	exam, err := service.GetExamConfigBySlug(ctx, "jee-main")
	require.NoError(t, err)
	require.NotNil(t, exam)
	assert.Equal(t, "JEE Main 2027", exam.Name)
	assert.Equal(t, "https://jeemain.example.org/v2", exam.URL)
	assert.Empty(t, exam.FieldMappings, "import replaces every field")
	assert.True(t, exam.IsActive)
	assert.False(t, exam.NotifyOnFailure)
}

func TestSelectExams(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.AddExam("jee-main", true)
	store.AddExam("neet-ug", false)
	service := orchestration.NewService(store, nil)

	all, err := selectExams(ctx, service, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "jee-main", all[0].Slug)

	named, err := selectExams(ctx, service, []string{"neet-ug"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "neet-ug", named[0].Slug)

	_, err = selectExams(ctx, service, []string{"cat"})
	assert.ErrorContains(t, err, "exam configuration not found: cat")

	_, err = selectExams(ctx, orchestration.NewService(memstore.New(), nil), nil)
	assert.ErrorContains(t, err, "no active exam configurations")
}

func TestReportProbe(t *testing.T) {
	results := []probe.Result{
		{Slug: "jee-main", FieldCount: 12, Missing: []probe.MissingMapping{}},
		{Slug: "neet-ug", FieldCount: 9, Missing: []probe.MissingMapping{
			{ProfileField: "dob", FormField: "txtDOB"},
			{ProfileField: "phone", FormField: "txtMobile"},
		}},
		{Slug: "cat", Error: "browser rendering failed: timeout"},
	}

	var out bytes.Buffer
	err := reportProbe(&out, results, false)
	assert.EqualError(t, err, "2 of 3 exam(s) failed the probe")
	assert.Contains(t, out.String(), "SLUG")
	assert.Contains(t, out.String(), "dob->txtDOB, phone->txtMobile")
	assert.Contains(t, out.String(), "browser rendering failed: timeout")

	out.Reset()
	require.NoError(t, reportProbe(&out, results[:1], true))
	var decoded []probe.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, results[:1], decoded)
}

func TestRunExamsProbe_ArgumentErrors(t *testing.T) {
	t.Cleanup(func() { probeAll, probeConcurrency = false, probe.DefaultConcurrency })

	probeAll = false
	assert.ErrorContains(t, runExamsProbe(examsProbeCmd, nil), "provide exam slugs or --all")

	probeAll = true
	assert.ErrorContains(t, runExamsProbe(examsProbeCmd, []string{"jee-main"}), "not both")

	probeConcurrency = 0
	assert.ErrorContains(t, runExamsProbe(examsProbeCmd, nil), "--concurrency")
}
