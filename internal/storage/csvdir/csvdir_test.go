package csvdir

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segment-flow-lab/internal/domain"
	"segment-flow-lab/internal/storage"
	"segment-flow-lab/internal/table"
)

func TestReadTable(t *testing.T) {
	input := "\ufeffglbl_enti_nbr,segmentation_mnth,dmnt_seg_cd\nE1,202406,SEG01\nE2,202406,\n"

	got, err := ReadTable(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"glbl_enti_nbr", "segmentation_mnth", "dmnt_seg_cd"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []any{"E1", "202406", "SEG01"}, got.Rows[0])
	assert.Nil(t, got.Rows[1][2])
}

func TestWriteThenReadTable(t *testing.T) {
	src := table.New("id", "month", "value")
	src.Append("E1", 202401, 12.5)
	src.Append("E2", 202402, nil)

	var sb strings.Builder
	require.NoError(t, WriteTable(&sb, src))
	assert.Equal(t, "id,month,value\nE1,202401,12.5\nE2,202402,\n", sb.String())

	got, err := ReadTable(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, []any{"E1", "202401", "12.5"}, got.Rows[0])
}

func TestDir_LoadAndDiscover(t *testing.T) {
	dir := New(t.TempDir())
	ctx := context.Background()

	base := table.New("glbl_enti_nbr", "segmentation_mnth", "dmnt_seg_cd")
	base.Append("E1", 202406, "SEG01")
	require.NoError(t, dir.WriteBase(base))

	current := table.New("glbl_enti_nbr", "segmentation_mnth", "dmnt_seg_cd")
	current.Append("E1", 202412, "SEG02")
	require.NoError(t, dir.WriteCurrent(202412, current))
	require.NoError(t, dir.WriteCurrent(202411, current))
	require.NoError(t, os.WriteFile(filepath.Join(dir.Path(), "notes.txt"), []byte("x"), 0o644))

	months, err := dir.CurrentMonths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{202411, 202412}, months)

	got, err := dir.LoadBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestDir_LoadCurrentNotFound(t *testing.T) {
	dir := New(t.TempDir())

	_, err := dir.LoadCurrent(context.Background(), 202501)
	require.Error(t, err)

	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "curr_seg_202501.csv", nf.Resource)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
