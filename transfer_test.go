package skillet

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/skillet/slogger"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := NewRegistry(RegistryOptions{Logger: slogger.NewDevNullLogger()})
	a := echoSkill("alpha")
	b := echoSkill("beta")
	b.Verified = true
	require.NoError(t, src.Register(ctx, a))
	require.NoError(t, src.Register(ctx, b))

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	doc := src.Export(now)
	require.True(t, doc.Success)
	require.Equal(t, "2025-06-02T09:30:00Z", doc.ExportDate)
	require.Equal(t, 2, doc.SkillsCount)
	require.Contains(t, doc.Skills, "alpha")

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var in ImportDocument
	require.NoError(t, json.Unmarshal(data, &in))
	in.Skills["broken"] = json.RawMessage(`{"name": 7}`)
	in.Skills["bad name"] = in.Skills["alpha"]

	dst := NewRegistry(RegistryOptions{Logger: slogger.NewDevNullLogger()})
	require.NoError(t, dst.Register(ctx, echoSkill("alpha")))

	imported, errs := dst.Import(ctx, in)
	require.Equal(t, 1, imported)
	require.Len(t, errs, 3)
	require.Contains(t, errs[0], "Skill 'alpha' already exists, skipped")
	require.Contains(t, errs[1], "Skill 'bad name' validation failed")
	require.Contains(t, errs[2], "Error importing skill 'broken'")

	got, ok := dst.Get("beta")
	require.True(t, ok)
	require.False(t, got.Verified)
}
