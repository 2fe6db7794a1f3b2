package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	start := time.UnixMilli(1700000000000)
	for i := 0; i < 3; i++ {
		id, err := l.Record(ctx, Run{
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
			Backend:    "local",
			Seed:       int64(i),
			TrainRows:  700,
			TestRows:   300,
			Artifact:   "xgboost-a",
			TN:         150,
			FP:         50,
			FN:         40,
			TP:         60,
			Accuracy:   70,
		})
		require.NoError(t, err)
		require.Equal(t, int64(i+1), id)
	}

	runs, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, int64(2), runs[0].Seed)
	require.Equal(t, int64(1), runs[1].Seed)
	require.Equal(t, start.Add(time.Minute), runs[0].FinishedAt)
	require.Equal(t, 300, runs[0].TN+runs[0].FP+runs[0].FN+runs[0].TP)
}
