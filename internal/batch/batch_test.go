package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/pipeline"
	"github.com/MeKo-Tech/pricetag/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyRunner copies a prepared PDF to the output and fails catalogs named in fail.
type copyRunner struct {
	pdf      []byte
	fail     map[string]bool
	inputs   []pipeline.Input
	workDirs []string
}

func (r *copyRunner) Run(_ context.Context, in pipeline.Input, progress common.ProgressFunc) (*pipeline.Result, error) {
	r.inputs = append(r.inputs, in)
	r.workDirs = append(r.workDirs, in.WorkDir)
	progress.Report("Done", 1)
	if r.fail[filepath.Base(in.CatalogPath)] {
		return nil, errors.New("cannot open catalog")
	}
	if err := os.WriteFile(in.OutputPath, r.pdf, 0o600); err != nil {
		return nil, err
	}
	return &pipeline.Result{Priced: 2, Pages: 1, Labels: 2, OutputPath: in.OutputPath}, nil
}

func newRunner(t *testing.T, fail ...string) *copyRunner {
	t.Helper()
	src := testutil.WriteCatalogPDF(t, t.TempDir(), "out.pdf", []testutil.CatalogPage{{Lines: []string{"BONE 82969"}}})
	r := &copyRunner{pdf: testutil.ReadFile(t, src), fail: map[string]bool{}}
	for _, f := range fail {
		r.fail[f] = true
	}
	return r
}

func catalogs(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	return dir, []string{
		touch(t, filepath.Join(dir, "a.pdf")),
		touch(t, filepath.Join(dir, "b.pdf")),
		touch(t, filepath.Join(dir, "sub", "a.pdf")),
	}
}

func TestProcessBatch(t *testing.T) {
	dir, _ := catalogs(t)
	out := filepath.Join(t.TempDir(), "saida")
	runner := newRunner(t)

	var calls []string
	res, err := ProcessBatch(context.Background(), runner, []string{dir}, Config{
		PricesPath: "precos.xlsx",
		OutDir:     out,
		Suffix:     "_precificado",
		Recursive:  true,
		WorkRoot:   t.TempDir(),
		Progress: func(cat string, i, total int) common.ProgressFunc {
			return func(string, float64) { calls = append(calls, filepath.Base(cat)) }
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Succeeded())
	assert.Empty(t, res.Failed())
	assert.Equal(t, 6, res.Priced())
	assert.Equal(t, []string{"a.pdf", "b.pdf", "a.pdf"}, calls)

	assert.Equal(t, filepath.Join(out, "a_precificado.pdf"), res.Items[0].Output)
	assert.Equal(t, filepath.Join(out, "b_precificado.pdf"), res.Items[1].Output)
	assert.Equal(t, filepath.Join(out, "a_precificado_2.pdf"), res.Items[2].Output)
	for _, in := range runner.inputs {
		assert.Equal(t, "precos.xlsx", in.PricesPath)
	}
	for _, wd := range runner.workDirs {
		assert.False(t, testutil.DirExists(wd), "work dir %s not removed", wd)
	}
}

func TestProcessBatchKeepsWorkDir(t *testing.T) {
	_, files := catalogs(t)
	runner := newRunner(t)

	_, err := ProcessBatch(context.Background(), runner, files[:1], Config{
		OutDir: t.TempDir(), WorkRoot: t.TempDir(), KeepWorkDir: true,
	})
	require.NoError(t, err)
	require.Len(t, runner.workDirs, 1)
	assert.True(t, testutil.DirExists(runner.workDirs[0]))
}

func TestProcessBatchFailures(t *testing.T) {
	_, files := catalogs(t)

	t.Run("stop on first error", func(t *testing.T) {
		runner := newRunner(t, "a.pdf")
		res, err := ProcessBatch(context.Background(), runner, files, Config{OutDir: t.TempDir(), WorkRoot: t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot open catalog")
		require.NotNil(t, res)
		assert.Len(t, res.Items, 1)
	})

	t.Run("continue on error", func(t *testing.T) {
		runner := newRunner(t, "b.pdf")
		res, err := ProcessBatch(context.Background(), runner, files, Config{
			OutDir: t.TempDir(), WorkRoot: t.TempDir(), ContinueOnError: true,
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 3)
		assert.Equal(t, 2, res.Succeeded())
		require.Len(t, res.Failed(), 1)
		assert.Equal(t, files[1], res.Failed()[0].Catalog)
	})

	t.Run("unverifiable output", func(t *testing.T) {
		runner := newRunner(t)
		runner.pdf = []byte("not a pdf")
		res, err := ProcessBatch(context.Background(), runner, files[:1], Config{OutDir: t.TempDir(), WorkRoot: t.TempDir()})
		require.ErrorIs(t, err, pipeline.ErrNoOutput)
		assert.Zero(t, res.Succeeded())
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := ProcessBatch(context.Background(), newRunner(t), []string{t.TempDir()}, Config{OutDir: t.TempDir()})
		require.ErrorIs(t, err, ErrNoCatalogs)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ProcessBatch(ctx, newRunner(t), files, Config{OutDir: t.TempDir(), WorkRoot: t.TempDir()})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFormatResults(t *testing.T) {
	res := &Result{Items: []Item{
		{Catalog: "a.pdf", Output: "out/a.pdf", Result: &pipeline.Result{Priced: 3, Pages: 2, Labels: 3}},
		{Catalog: "b.pdf", Output: "out/b.pdf", Err: errors.New("boom")},
	}}

	text, err := res.FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, text, "OK   a.pdf -> out/a.pdf (3 priced, 3 labels, 2 pages)")
	assert.Contains(t, text, "FAIL b.pdf: boom")
	assert.Contains(t, text, "1 succeeded, 1 failed, 3 priced")

	js, err := res.FormatResults("json")
	require.NoError(t, err)
	var back batchSummary
	require.NoError(t, json.Unmarshal([]byte(js), &back))
	assert.Equal(t, 1, back.Failed)
	assert.Equal(t, "failed", back.Catalogs[1].Status)
	assert.Empty(t, back.Catalogs[1].Output)

	csvOut, err := res.FormatResults("csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a.pdf,out/a.pdf,ok,3,2,3,0,", lines[1])

	yml, err := res.FormatResults("yaml")
	require.NoError(t, err)
	assert.Contains(t, yml, "succeeded: 1")

	_, err = res.FormatResults("xml")
	require.ErrorIs(t, err, pipeline.ErrUnknownFormat)
}
